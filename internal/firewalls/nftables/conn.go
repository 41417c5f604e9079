// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package nftables

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
)

const DefaultTimeout = 10 * time.Second

// 丢弃残留回复时每次读取的等待时间
const drainTimeout = 50 * time.Millisecond

// 一次最多丢弃的残留数据包数量
const maxDrainDatagrams = 1024

type Option func(conn *Conn)

// WithTimeout timeout of calls whose context has no deadline
func WithTimeout(timeout time.Duration) Option {
	return func(conn *Conn) {
		if timeout > 0 {
			conn.timeout = timeout
		}
	}
}

// WithSocket use an opened socket instead of dialing one
func WithSocket(socket Socket) Option {
	return func(conn *Conn) {
		conn.socket = socket
	}
}

// Conn nftables connection, one request is in flight at a time
type Conn struct {
	socket  Socket
	timeout time.Duration

	locker sync.Mutex
	seq    uint32 // sequence of get and dump requests
	stale  bool   // a call gave up waiting, its replies may still arrive
}

func NewConn(opts ...Option) (*Conn, error) {
	var conn = &Conn{
		timeout: DefaultTimeout,
		seq:     1 << 16,
	}
	for _, opt := range opts {
		opt(conn)
	}
	if conn.socket == nil {
		socket, err := openSocket()
		if err != nil {
			return nil, err
		}
		conn.socket = socket
	}
	return conn, nil
}

func (this *Conn) Socket() Socket {
	return this.socket
}

func (this *Conn) Close() error {
	return this.socket.Close()
}

func (this *Conn) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	_, ok := ctx.Deadline()
	if ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, this.timeout)
}

// Send send the batch in one datagram and wait for the outcome of every object
// The returned error joins the kernel errors of the batch, details are in the result.
func (this *Conn) Send(ctx context.Context, batch *Batch) (*Result, error) {
	tx, err := batch.transaction()
	if err != nil {
		return nil, err
	}
	if tx.IsEmpty() {
		return &Result{}, nil
	}

	this.locker.Lock()
	defer this.locker.Unlock()

	ctx, cancel := this.withTimeout(ctx)
	defer cancel()

	// batch sequences restart at 1, acks left by an earlier batch would be credited to this one
	this.drain(ctx)

	// the kernel expects batch begin and end in the same datagram
	err = this.socket.Send(ctx, tx.Bytes())
	if err != nil {
		return nil, err
	}

	var processor = NewProcessor(tx)
	for !processor.Done() {
		data, err := this.socket.Receive(ctx)
		if err != nil {
			this.stale = true
			return processor.Result(), err
		}
		err = processor.Feed(data)
		if err != nil {
			this.stale = true
			return processor.Result(), err
		}
	}
	var result = processor.Result()
	return result, result.Err()
}

// Commit send a batch holding a single operation
func (this *Conn) Commit(ctx context.Context, obj Object, op Operation) error {
	var batch = NewBatch()
	_, err := batch.Add(obj, op)
	if err != nil {
		return err
	}
	_, err = this.Send(ctx, batch)
	return err
}

func (this *Conn) nextSeq() uint32 {
	this.seq++
	if this.seq == 0 {
		this.seq = 1 << 16
	}
	return this.seq
}

// drain discard datagrams left by a call which stopped waiting for its replies
func (this *Conn) drain(ctx context.Context) {
	if !this.stale {
		return
	}
	for i := 0; i < maxDrainDatagrams; i++ {
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		_, err := this.socket.Receive(drainCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			break
		}
	}
	this.stale = false
}

// request send one message and collect the objects replied to it until done or acknowledged
func (this *Conn) request(ctx context.Context, msg *nlmsg.Message) ([]*nlmsg.Reply, error) {
	this.locker.Lock()
	defer this.locker.Unlock()

	ctx, cancel := this.withTimeout(ctx)
	defer cancel()

	this.drain(ctx)

	var seq = this.nextSeq()
	msg.Header.Seq = seq
	data, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	err = this.socket.Send(ctx, data)
	if err != nil {
		return nil, err
	}

	var s = &stream{}
	var replies = []*nlmsg.Reply{}
	var interrupted = false
	for {
		data, err := this.socket.Receive(ctx)
		if err != nil {
			this.stale = true
			return nil, err
		}
		s.Feed(data)

		for {
			f, ok, err := s.Next()
			if err != nil {
				this.stale = true
				return nil, err
			}
			if !ok {
				break
			}
			if f.header.Seq != seq {
				continue
			}
			if f.err != nil {
				if !errors.Is(f.err, nlattr.ErrConcurrentGenerationUpdate) {
					this.stale = true
					return nil, f.err
				}

				// drain the dump, its content is discarded
				interrupted = true
				if f.header.Type == nlmsg.TypeDone {
					return nil, ErrConcurrentGenerationUpdate
				}
				continue
			}

			var reply = f.reply
			switch reply.Kind {
			case nlmsg.ReplyDone:
				if interrupted {
					return nil, ErrConcurrentGenerationUpdate
				}
				return replies, nil
			case nlmsg.ReplyError:
				if reply.Error.Code != 0 {
					return nil, &KernelError{Seq: seq, Code: reply.Error.Code}
				}
				if msg.Header.Flags&nlmsg.FlagDump == 0 {
					if interrupted {
						return nil, ErrConcurrentGenerationUpdate
					}
					return replies, nil
				}
			case nlmsg.ReplyObject:
				if !interrupted {
					replies = append(replies, reply)
				}
			}
		}
	}
}

func (this *Conn) dump(ctx context.Context, op uint16, family TableFamily, attrs *nlattr.AttributeSet) ([]*nlmsg.Reply, error) {
	return this.request(ctx, &nlmsg.Message{
		Header: nlmsg.Header{
			Type:  nlmsg.NFTType(op),
			Flags: nlmsg.FlagRequest | nlmsg.FlagDump,
		},
		Nfgen: nlmsg.Nfgenmsg{
			Family:  family,
			Version: nlmsg.NetlinkV0,
		},
		Attrs: attrs,
	})
}

// ListTables tables of a family, nlattr.ProtoUnspec for all families
func (this *Conn) ListTables(ctx context.Context, family TableFamily) ([]*Table, error) {
	replies, err := this.dump(ctx, nlmsg.MsgGetTable, family, nil)
	if err != nil {
		return nil, err
	}
	var result = []*Table{}
	for _, reply := range replies {
		attrs, err := nlmsg.ParseObject(reply, tablePolicy)
		if err != nil {
			return nil, err
		}
		table, err := tableFromAttributes(reply.Nfgen.Family, attrs)
		if err != nil {
			return nil, err
		}
		result = append(result, table)
	}
	return result, nil
}

// ListChains chains of a family, nlattr.ProtoUnspec for all families
func (this *Conn) ListChains(ctx context.Context, family TableFamily) ([]*Chain, error) {
	replies, err := this.dump(ctx, nlmsg.MsgGetChain, family, nil)
	if err != nil {
		return nil, err
	}
	var result = []*Chain{}
	for _, reply := range replies {
		attrs, err := nlmsg.ParseObject(reply, chainPolicy)
		if err != nil {
			return nil, err
		}
		chain, err := chainFromAttributes(reply.Nfgen.Family, attrs)
		if err != nil {
			return nil, err
		}
		result = append(result, chain)
	}
	return result, nil
}

// ListRules rules of a chain in evaluation order
// The position of each rule is the handle of the rule before it.
func (this *Conn) ListRules(ctx context.Context, chain *Chain) ([]*Rule, error) {
	err := chain.Validate()
	if err != nil {
		return nil, err
	}
	replies, err := this.dump(ctx, nlmsg.MsgGetRule, chain.Family, nlattr.NewAttributeSet().
		Set(attrRuleTable, nlattr.String(chain.Table)).
		Set(attrRuleChain, nlattr.String(chain.Name)))
	if err != nil {
		return nil, err
	}

	var result = []*Rule{}
	var lastHandle uint64
	for _, reply := range replies {
		attrs, err := nlmsg.ParseObject(reply, rulePolicy)
		if err != nil {
			return nil, err
		}
		rule, err := ruleFromAttributes(reply.Nfgen.Family, attrs)
		if err != nil {
			return nil, err
		}
		if rule.chain.Table != chain.Table || rule.chain.Chain != chain.Name {
			continue
		}
		_, hasPosition := rule.Position()
		if !hasPosition {
			rule.SetPosition(lastHandle)
		}
		lastHandle, _ = rule.Handle()
		result = append(result, rule)
	}
	return result, nil
}

// Generation current ruleset generation id
func (this *Conn) Generation(ctx context.Context) (uint32, error) {
	replies, err := this.request(ctx, &nlmsg.Message{
		Header: nlmsg.Header{
			Type:  nlmsg.NFTType(nlmsg.MsgGetGen),
			Flags: nlmsg.FlagRequest | nlmsg.FlagAck,
		},
		Nfgen: nlmsg.Nfgenmsg{
			Family:  nlattr.ProtoUnspec,
			Version: nlmsg.NetlinkV0,
		},
	})
	if err != nil {
		return 0, err
	}
	for _, reply := range replies {
		if reply.Header.Op() != nlmsg.MsgNewGen {
			continue
		}
		attrs, err := nlmsg.ParseObject(reply, genPolicy)
		if err != nil {
			return 0, err
		}
		id, ok := attrs.GetU32(attrGenID)
		if ok {
			return id, nil
		}
	}
	return 0, nlattr.Custom(errors.New("no generation in reply"))
}

func (this *Conn) GetTable(ctx context.Context, name string, family TableFamily) (*Table, error) {
	tables, err := this.ListTables(ctx, family)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		if table.Name == name && table.Family == family {
			return table, nil
		}
	}
	return nil, ErrTableNotFound
}

func (this *Conn) GetChain(ctx context.Context, table *Table, name string) (*Chain, error) {
	chains, err := this.ListChains(ctx, table.Family)
	if err != nil {
		return nil, err
	}
	for _, chain := range chains {
		if chain.Table == table.Name && chain.Name == name {
			return chain, nil
		}
	}
	return nil, ErrChainNotFound
}

func (this *Conn) GetRuleWithUserData(ctx context.Context, chain *Chain, userData []byte) (*Rule, error) {
	rules, err := this.ListRules(ctx, chain)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if bytes.Equal(rule.UserData, userData) {
			return rule, nil
		}
	}
	return nil, ErrRuleNotFound
}

// AddTable create a table
func (this *Conn) AddTable(ctx context.Context, name string, family TableFamily) (*Table, error) {
	var table = NewTable(name, family)
	err := this.Commit(ctx, table, OpAdd)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (this *Conn) AddIPv4Table(ctx context.Context, name string) (*Table, error) {
	return this.AddTable(ctx, name, TableFamilyIPv4)
}

func (this *Conn) AddIPv6Table(ctx context.Context, name string) (*Table, error) {
	return this.AddTable(ctx, name, TableFamilyIPv6)
}

// DeleteTable delete a table with its chains and rules, a missing table is not an error
func (this *Conn) DeleteTable(ctx context.Context, name string, family TableFamily) error {
	err := this.Commit(ctx, NewTable(name, family), OpDelete)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}
