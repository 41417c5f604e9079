// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftables

import (
	"errors"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
)

// frame one message cut from the stream
type frame struct {
	header nlmsg.Header
	reply  *nlmsg.Reply
	err    error // parse error of this message only
}

// stream reassemble messages from datagrams
// Message boundaries only come from the declared lengths, a datagram may hold several messages or a part of one.
type stream struct {
	buf []byte
}

func (this *stream) Feed(b []byte) {
	this.buf = append(this.buf, b...)
}

// Next next complete message, ok is false when more data is needed
func (this *stream) Next() (f *frame, ok bool, err error) {
	if len(this.buf) < nlmsg.HeaderLen {
		return nil, false, nil
	}
	var header = nlmsg.ParseHeader(this.buf)
	if header.Len < nlmsg.HeaderLen || header.Len > nlmsg.MaxMessageSize {
		this.buf = nil
		return nil, false, nlattr.ErrMessageTooSmall
	}
	if int(header.Len) > len(this.buf) {
		return nil, false, nil
	}

	var msg = this.buf[:header.Len]
	var next = nlattr.Align(int(header.Len))
	if next > len(this.buf) {
		next = len(this.buf)
	}
	this.buf = this.buf[next:]
	if len(this.buf) == 0 {
		this.buf = nil
	}

	reply, _, err := nlmsg.ParseMessage(msg)
	return &frame{
		header: header,
		reply:  reply,
		err:    err,
	}, true, nil
}

func (this *stream) Pending() int {
	return len(this.buf)
}

// Outcome result of one queued object
type Outcome struct {
	Entry *BatchEntry
	Acked bool
	Err   error
}

// Result outcomes of a sent batch
type Result struct {
	Outcomes []*Outcome
	BatchErr error // error of the batch as a whole, such as EPERM
}

// Err all errors joined, nil if every object was acknowledged
func (this *Result) Err() error {
	if this == nil {
		return nil
	}
	var errs = []error{}
	if this.BatchErr != nil {
		errs = append(errs, this.BatchErr)
	}
	for _, outcome := range this.Outcomes {
		if outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	return errors.Join(errs...)
}

func (this *Result) Outcome(seq uint32) (*Outcome, bool) {
	if this == nil {
		return nil, false
	}
	for _, outcome := range this.Outcomes {
		if outcome.Entry.Seq == seq {
			return outcome, true
		}
	}
	return nil, false
}

func (this *Result) Succeeded() bool {
	return this.Err() == nil
}

// Processor match kernel replies to the entries of a transaction
type Processor struct {
	stream   stream
	outcomes []*Outcome
	bySeq    map[uint32]*Outcome
	pending  int
	batchErr error
	done     bool
}

func NewProcessor(tx *Transaction) *Processor {
	var processor = &Processor{
		bySeq: map[uint32]*Outcome{},
	}
	for _, entry := range tx.Entries {
		var outcome = &Outcome{Entry: entry}
		processor.outcomes = append(processor.outcomes, outcome)
		processor.bySeq[entry.Seq] = outcome
	}
	processor.pending = len(processor.outcomes)
	processor.done = processor.pending == 0
	return processor
}

// Feed process one datagram, a returned error ends processing
func (this *Processor) Feed(datagram []byte) error {
	if this.done {
		return nil
	}
	this.stream.Feed(datagram)
	for !this.done {
		f, ok, err := this.stream.Next()
		if err != nil {
			this.fail(err)
			return err
		}
		if !ok {
			break
		}
		if f.err != nil {
			this.fail(f.err)
			return f.err
		}
		this.handle(f.reply)
	}
	return nil
}

func (this *Processor) handle(reply *nlmsg.Reply) {
	switch reply.Kind {
	case nlmsg.ReplyDone:
		this.done = true
	case nlmsg.ReplyError:
		var seq = reply.Header.Seq
		outcome, ok := this.bySeq[seq]
		if !ok {
			// seq 0 is the batch begin message, the kernel reports errors about the whole batch there
			if reply.Error.Code != 0 {
				this.fail(&KernelError{Seq: seq, Code: reply.Error.Code})
			}
			return
		}
		if outcome.Acked || outcome.Err != nil {
			return
		}
		if reply.Error.Code == 0 {
			outcome.Acked = true
		} else {
			outcome.Err = &KernelError{Seq: seq, Code: reply.Error.Code}
		}
		this.pending--
		if this.pending <= 0 {
			this.done = true
		}
	}
}

func (this *Processor) fail(err error) {
	if this.batchErr == nil {
		this.batchErr = err
	}
	this.done = true
}

func (this *Processor) Done() bool {
	return this.done
}

// Result outcomes so far, entries without a reply are marked with ErrNotAcknowledged
func (this *Processor) Result() *Result {
	var result = &Result{
		BatchErr: this.batchErr,
	}
	for _, outcome := range this.outcomes {
		var o = *outcome
		if !o.Acked && o.Err == nil && this.batchErr == nil {
			o.Err = ErrNotAcknowledged
		}
		result.Outcomes = append(result.Outcomes, &o)
	}
	return result
}
