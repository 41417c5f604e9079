// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftest

import (
	"strings"
	"sync"
	"syscall"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
)

const (
	attrTableName   nlattr.NetlinkType = 1
	attrTableHandle nlattr.NetlinkType = 4

	attrChainTable  nlattr.NetlinkType = 1
	attrChainHandle nlattr.NetlinkType = 2
	attrChainName   nlattr.NetlinkType = 3

	attrRuleTable    nlattr.NetlinkType = 1
	attrRuleChain    nlattr.NetlinkType = 2
	attrRuleHandle   nlattr.NetlinkType = 3
	attrRulePosition nlattr.NetlinkType = 6

	attrGenID nlattr.NetlinkType = 1
)

type object struct {
	family nlattr.ProtoFamily
	table  string
	chain  string
	name   string
	handle uint64
	attrs  []nlattr.RawAttribute
}

// Kernel keeps tables, chains and rules sent in batches and answers dumps about them
// A failed message rolls back the whole batch.
type Kernel struct {
	locker     sync.Mutex
	generation uint32
	lastHandle uint64

	tables []*object
	chains []*object
	rules  []*object

	interrupts int
	batches    int
}

func NewKernel() *Kernel {
	return &Kernel{
		generation: 1,
	}
}

// NewSocket socket answered by the kernel
func (this *Kernel) NewSocket() *FakeSocket {
	return NewFakeSocket(this.Respond)
}

// InterruptDumps flag the next count dumps as interrupted by a concurrent update
func (this *Kernel) InterruptDumps(count int) {
	this.locker.Lock()
	this.interrupts = count
	this.locker.Unlock()
}

func (this *Kernel) Generation() uint32 {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.generation
}

// Batches count of committed batches
func (this *Kernel) Batches() int {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.batches
}

func (this *Kernel) HasTable(family nlattr.ProtoFamily, name string) bool {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.findTable(family, name) >= 0
}

func (this *Kernel) HasChain(family nlattr.ProtoFamily, table string, name string) bool {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.findChain(family, table, name) >= 0
}

// CountRules rules in a chain, all chains of the table if chain is empty
func (this *Kernel) CountRules(family nlattr.ProtoFamily, table string, chain string) int {
	this.locker.Lock()
	defer this.locker.Unlock()
	var count = 0
	for _, rule := range this.rules {
		if rule.family == family && rule.table == table && (len(chain) == 0 || rule.chain == chain) {
			count++
		}
	}
	return count
}

// Respond answer one datagram
func (this *Kernel) Respond(datagram []byte) [][]byte {
	this.locker.Lock()
	defer this.locker.Unlock()

	var messages = SplitMessages(datagram)
	if len(messages) == 0 {
		return nil
	}
	var header = nlmsg.ParseHeader(messages[0])
	if header.Type == nlmsg.MsgBatchBegin {
		return this.commit(messages)
	}

	var replies = [][]byte{}
	for _, msg := range messages {
		replies = append(replies, this.request(msg)...)
	}
	return replies
}

func (this *Kernel) request(msg []byte) [][]byte {
	var header = nlmsg.ParseHeader(msg)
	if header.Subsystem() != nlmsg.SubsysNFTables || len(msg) < nlmsg.HeaderLen+nlmsg.NfgenmsgLen {
		return [][]byte{ErrorMessage(header.Seq, int32(syscall.EINVAL))}
	}
	var family = nlmsg.ParseNfgenmsg(msg[nlmsg.HeaderLen:]).Family
	attrs, err := nlattr.Parse(msg[nlmsg.HeaderLen+nlmsg.NfgenmsgLen:])
	if err != nil {
		return [][]byte{ErrorMessage(header.Seq, int32(syscall.EINVAL))}
	}

	if header.Op() == nlmsg.MsgGetGen {
		var replies = [][]byte{
			ObjectMessage(nlmsg.MsgNewGen, header.Seq, 0, nlattr.ProtoUnspec, nlattr.NewAttributeSet().Set(attrGenID, nlattr.U32(this.generation))),
		}
		if header.Flags&nlmsg.FlagAck != 0 {
			replies = append(replies, ErrorMessage(header.Seq, 0))
		}
		return replies
	}

	var objects []*object
	var handleType nlattr.NetlinkType
	var newOp uint16
	switch header.Op() {
	case nlmsg.MsgGetTable:
		objects, handleType, newOp = this.tables, attrTableHandle, nlmsg.MsgNewTable
	case nlmsg.MsgGetChain:
		objects, handleType, newOp = this.chains, attrChainHandle, nlmsg.MsgNewChain
	case nlmsg.MsgGetRule:
		objects, handleType, newOp = this.rules, attrRuleHandle, nlmsg.MsgNewRule
	default:
		return [][]byte{ErrorMessage(header.Seq, int32(syscall.EOPNOTSUPP))}
	}

	var flags = nlmsg.FlagMulti
	if this.interrupts > 0 {
		this.interrupts--
		flags |= nlmsg.FlagDumpIntr
	}

	var table = stringAttr(attrs, attrRuleTable)
	var chain = stringAttr(attrs, attrRuleChain)
	var data = []byte{}
	for _, obj := range objects {
		if family != nlattr.ProtoUnspec && obj.family != family {
			continue
		}
		if header.Op() == nlmsg.MsgGetRule && ((len(table) > 0 && obj.table != table) || (len(chain) > 0 && obj.chain != chain)) {
			continue
		}
		data = append(data, ObjectMessage(newOp, header.Seq, flags, obj.family, obj.encode(handleType))...)
	}
	if len(data) == 0 {
		return [][]byte{DoneMessage(header.Seq, flags)}
	}
	return [][]byte{data, DoneMessage(header.Seq, flags)}
}

// commit apply messages between batch begin and end, all or nothing
func (this *Kernel) commit(messages [][]byte) [][]byte {
	var tables = append([]*object{}, this.tables...)
	var chains = append([]*object{}, this.chains...)
	var rules = append([]*object{}, this.rules...)
	var lastHandle = this.lastHandle

	var replies = [][]byte{}
	var failed = false
	for _, msg := range messages {
		var header = nlmsg.ParseHeader(msg)
		if header.Type == nlmsg.MsgBatchBegin || header.Type == nlmsg.MsgBatchEnd {
			continue
		}

		// every message is answered, acks included, before a failed batch is rolled back
		var errno = this.apply(msg)
		if errno != 0 {
			failed = true
			replies = append(replies, ErrorMessage(header.Seq, int32(errno)))
			continue
		}
		if header.Flags&nlmsg.FlagAck != 0 {
			replies = append(replies, ErrorMessage(header.Seq, 0))
		}
	}
	if failed {
		this.tables, this.chains, this.rules, this.lastHandle = tables, chains, rules, lastHandle
		return replies
	}
	this.generation++
	this.batches++
	return replies
}

func (this *Kernel) apply(msg []byte) syscall.Errno {
	var header = nlmsg.ParseHeader(msg)
	if header.Subsystem() != nlmsg.SubsysNFTables || len(msg) < nlmsg.HeaderLen+nlmsg.NfgenmsgLen {
		return syscall.EINVAL
	}
	var family = nlmsg.ParseNfgenmsg(msg[nlmsg.HeaderLen:]).Family
	rawAttrs, err := nlattr.Parse(msg[nlmsg.HeaderLen+nlmsg.NfgenmsgLen:])
	if err != nil {
		return syscall.EINVAL
	}
	var attrs = []nlattr.RawAttribute{}
	for _, attr := range rawAttrs {
		attr.Data = append([]byte{}, attr.Data...)
		attrs = append(attrs, attr)
	}
	var exclusive = header.Flags&nlmsg.FlagExcl != 0

	switch header.Op() {
	case nlmsg.MsgNewTable:
		var name = stringAttr(attrs, attrTableName)
		if this.findTable(family, name) >= 0 {
			if exclusive {
				return syscall.EEXIST
			}
			return 0
		}
		this.tables = append(this.tables, &object{family: family, name: name, handle: this.nextHandle(), attrs: attrs})
	case nlmsg.MsgDelTable:
		var name = stringAttr(attrs, attrTableName)
		var index = this.findTable(family, name)
		if index < 0 {
			return syscall.ENOENT
		}
		this.tables = remove(this.tables, func(obj *object) bool { return obj.family == family && obj.name == name })
		this.chains = remove(this.chains, func(obj *object) bool { return obj.family == family && obj.table == name })
		this.rules = remove(this.rules, func(obj *object) bool { return obj.family == family && obj.table == name })
	case nlmsg.MsgNewChain:
		var table = stringAttr(attrs, attrChainTable)
		var name = stringAttr(attrs, attrChainName)
		if this.findTable(family, table) < 0 {
			return syscall.ENOENT
		}
		if this.findChain(family, table, name) >= 0 {
			if exclusive {
				return syscall.EEXIST
			}
			return 0
		}
		this.chains = append(this.chains, &object{family: family, table: table, name: name, handle: this.nextHandle(), attrs: attrs})
	case nlmsg.MsgDelChain:
		var table = stringAttr(attrs, attrChainTable)
		var name = stringAttr(attrs, attrChainName)
		if this.findChain(family, table, name) < 0 {
			return syscall.ENOENT
		}
		for _, rule := range this.rules {
			if rule.family == family && rule.table == table && rule.chain == name {
				return syscall.EBUSY
			}
		}
		this.chains = remove(this.chains, func(obj *object) bool {
			return obj.family == family && obj.table == table && obj.name == name
		})
	case nlmsg.MsgNewRule:
		var table = stringAttr(attrs, attrRuleTable)
		var chain = stringAttr(attrs, attrRuleChain)
		if this.findChain(family, table, chain) < 0 {
			return syscall.ENOENT
		}
		var rule = &object{family: family, table: table, chain: chain, handle: this.nextHandle(), attrs: attrs}
		position, hasPosition := u64Attr(attrs, attrRulePosition)
		if !hasPosition {
			this.rules = append(this.rules, rule)
			return 0
		}
		for index, other := range this.rules {
			if other.family == family && other.table == table && other.chain == chain && other.handle == position {
				this.rules = append(this.rules[:index+1], append([]*object{rule}, this.rules[index+1:]...)...)
				return 0
			}
		}
		return syscall.ENOENT
	case nlmsg.MsgDelRule:
		var table = stringAttr(attrs, attrRuleTable)
		var chain = stringAttr(attrs, attrRuleChain)
		if this.findTable(family, table) < 0 {
			return syscall.ENOENT
		}
		if len(chain) > 0 && this.findChain(family, table, chain) < 0 {
			return syscall.ENOENT
		}
		handle, hasHandle := u64Attr(attrs, attrRuleHandle)
		var before = len(this.rules)
		this.rules = remove(this.rules, func(obj *object) bool {
			return obj.family == family && obj.table == table &&
				(len(chain) == 0 || obj.chain == chain) &&
				(!hasHandle || obj.handle == handle)
		})
		if hasHandle && before == len(this.rules) {
			return syscall.ENOENT
		}
	default:
		return syscall.EOPNOTSUPP
	}
	return 0
}

func (this *Kernel) nextHandle() uint64 {
	this.lastHandle++
	return this.lastHandle
}

func (this *Kernel) findTable(family nlattr.ProtoFamily, name string) int {
	for index, table := range this.tables {
		if table.family == family && table.name == name {
			return index
		}
	}
	return -1
}

func (this *Kernel) findChain(family nlattr.ProtoFamily, table string, name string) int {
	for index, chain := range this.chains {
		if chain.family == family && chain.table == table && chain.name == name {
			return index
		}
	}
	return -1
}

// encode attributes as sent, with the handle assigned by the kernel
func (this *object) encode(handleType nlattr.NetlinkType) *nlattr.AttributeSet {
	var set = nlattr.NewAttributeSet()
	for _, attr := range this.attrs {
		if attr.Type == handleType || attr.Type == attrRulePosition && handleType == attrRuleHandle {
			continue
		}
		set.Set(attr.Type, nlattr.Bytes(attr.Data))
	}
	set.Set(handleType, nlattr.U64(this.handle))
	return set
}

func remove(objects []*object, match func(obj *object) bool) []*object {
	var result = []*object{}
	for _, obj := range objects {
		if !match(obj) {
			result = append(result, obj)
		}
	}
	return result
}

func stringAttr(attrs []nlattr.RawAttribute, t nlattr.NetlinkType) string {
	for _, attr := range attrs {
		if attr.Type == t {
			return strings.TrimRight(string(attr.Data), "\x00")
		}
	}
	return ""
}

func u64Attr(attrs []nlattr.RawAttribute, t nlattr.NetlinkType) (uint64, bool) {
	for _, attr := range attrs {
		if attr.Type == t && len(attr.Data) == 8 {
			a, err := nlattr.DecodeU64(attr.Data)
			if err != nil {
				return 0, false
			}
			return uint64(a.(nlattr.U64)), true
		}
	}
	return 0, false
}
