// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftables

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
)

type BatchState int

const (
	BatchStateEmpty BatchState = iota
	BatchStateOpen
	BatchStateFinalized
)

func (this BatchState) String() string {
	switch this {
	case BatchStateEmpty:
		return "empty"
	case BatchStateOpen:
		return "open"
	case BatchStateFinalized:
		return "finalized"
	}
	return "unknown"
}

// BatchEntry one queued message
type BatchEntry struct {
	Seq    uint32
	Kind   ObjectKind
	Op     Operation
	Type   uint16
	Flags  uint16
	Object Object
}

// Batch objects to be applied atomically by the kernel
// Objects are serialized when they are added, later changes to them are not sent.
type Batch struct {
	state    BatchState
	segments [][]byte
	entries  []*BatchEntry
	seq      uint32

	tx *Transaction
}

// NewBatch open batch, sequence 0 is the batch begin message
func NewBatch() *Batch {
	var batch = &Batch{}
	batch.open()
	return batch
}

func (this *Batch) open() {
	this.state = BatchStateOpen
	this.seq = 0
	begin, _ := nlmsg.NewBatchMessage(nlmsg.MsgBatchBegin, 0).Encode() // no attributes
	this.segments = [][]byte{begin}
	this.entries = nil
}

func (this *Batch) State() BatchState {
	return this.state
}

// Len count of queued objects
func (this *Batch) Len() int {
	return len(this.entries)
}

// Add queue an operation on an object and return the sequence number assigned to it
func (this *Batch) Add(obj Object, op Operation) (uint32, error) {
	switch this.state {
	case BatchStateEmpty:
		this.open()
	case BatchStateFinalized:
		return 0, ErrBatchFinalized
	}

	msgType, flags, err := messageType(obj.Kind(), op)
	if err != nil {
		return 0, err
	}
	attrs, err := obj.attributes(op)
	if err != nil {
		return 0, err
	}

	var seq = this.seq + 1
	var msg = &nlmsg.Message{
		Header: nlmsg.Header{
			Type:  msgType,
			Flags: flags,
			Seq:   seq,
		},
		Nfgen: nlmsg.Nfgenmsg{
			Family:  obj.nfgenFamily(),
			Version: nlmsg.NetlinkV0,
		},
		Attrs: attrs,
	}
	data, err := msg.Encode()
	if err != nil {
		return 0, err
	}
	this.segments = append(this.segments, data)
	this.entries = append(this.entries, &BatchEntry{
		Seq:    seq,
		Kind:   obj.Kind(),
		Op:     op,
		Type:   msgType,
		Flags:  flags,
		Object: obj,
	})
	this.seq = seq
	return seq, nil
}

// AddTable shortcut of Add(table, OpAdd)
func (this *Batch) AddTable(table *Table) (uint32, error) {
	return this.Add(table, OpAdd)
}

func (this *Batch) AddChain(chain *Chain) (uint32, error) {
	return this.Add(chain, OpAdd)
}

func (this *Batch) AddRule(rule *Rule) (uint32, error) {
	return this.Add(rule, OpAdd)
}

func (this *Batch) Delete(obj Object) (uint32, error) {
	return this.Add(obj, OpDelete)
}

// Finalize close the batch with the batch end message
// An empty batch gives an empty transaction which does not need to be sent.
func (this *Batch) Finalize() (*Transaction, error) {
	if this.state == BatchStateFinalized {
		return nil, ErrBatchFinalized
	}
	this.state = BatchStateFinalized
	if len(this.entries) == 0 {
		this.segments = nil
		this.tx = &Transaction{}
		return this.tx, nil
	}

	end, _ := nlmsg.NewBatchMessage(nlmsg.MsgBatchEnd, this.seq+1).Encode() // no attributes
	this.segments = append(this.segments, end)
	this.tx = &Transaction{
		Segments: this.segments,
		Entries:  this.entries,
	}
	return this.tx, nil
}

// transaction finalize the batch unless it is finalized already
func (this *Batch) transaction() (*Transaction, error) {
	if this.state == BatchStateFinalized && this.tx != nil {
		return this.tx, nil
	}
	return this.Finalize()
}

// Transaction serialized batch
type Transaction struct {
	Segments [][]byte
	Entries  []*BatchEntry
}

func (this *Transaction) IsEmpty() bool {
	return len(this.Entries) == 0
}

// Bytes segments joined in one buffer, the kernel needs the whole batch in one datagram
func (this *Transaction) Bytes() []byte {
	var size = 0
	for _, segment := range this.Segments {
		size += len(segment)
	}
	var b = make([]byte, 0, size)
	for _, segment := range this.Segments {
		b = append(b, segment...)
	}
	return b
}

// Entry entry by sequence number
func (this *Transaction) Entry(seq uint32) (*BatchEntry, bool) {
	if seq == 0 || int(seq) > len(this.Entries) {
		return nil, false
	}
	var entry = this.Entries[seq-1]
	return entry, entry.Seq == seq
}
