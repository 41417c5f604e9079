// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftables

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
)

type ObjectKind int

const (
	ObjectTable ObjectKind = iota + 1
	ObjectChain
	ObjectRule
)

func (this ObjectKind) String() string {
	switch this {
	case ObjectTable:
		return "table"
	case ObjectChain:
		return "chain"
	case ObjectRule:
		return "rule"
	}
	return "object"
}

type Operation int

const (
	OpAdd    Operation = iota + 1 // create, fails if the object exists
	OpDelete                      // delete, rules need a handle
	OpEnsure                      // create tables and chains unless they exist
	OpFlush                       // delete all rules of a table or chain
)

func (this Operation) String() string {
	switch this {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpEnsure:
		return "ensure"
	case OpFlush:
		return "flush"
	}
	return "operation"
}

// Object table, chain or rule which can be queued in a batch
type Object interface {
	Kind() ObjectKind

	nfgenFamily() TableFamily
	attributes(op Operation) (*nlattr.AttributeSet, error)
}

// messageType netlink message type and flags of an operation on an object kind
func messageType(kind ObjectKind, op Operation) (msgType uint16, flags uint16, err error) {
	var newOp, delOp uint16
	switch kind {
	case ObjectTable:
		newOp, delOp = nlmsg.MsgNewTable, nlmsg.MsgDelTable
	case ObjectChain:
		newOp, delOp = nlmsg.MsgNewChain, nlmsg.MsgDelChain
	case ObjectRule:
		newOp, delOp = nlmsg.MsgNewRule, nlmsg.MsgDelRule
	default:
		return 0, 0, ErrUnsupportedOperation
	}

	switch op {
	case OpAdd:
		return nlmsg.NFTType(newOp), nlmsg.FlagRequest | nlmsg.FlagCreate | nlmsg.FlagAppend | nlmsg.FlagExcl | nlmsg.FlagAck, nil
	case OpDelete:
		return nlmsg.NFTType(delOp), nlmsg.FlagRequest | nlmsg.FlagAck, nil
	case OpEnsure:
		if kind == ObjectRule {
			return 0, 0, ErrUnsupportedOperation
		}
		return nlmsg.NFTType(newOp), nlmsg.FlagRequest | nlmsg.FlagCreate | nlmsg.FlagAck, nil
	case OpFlush:
		if kind == ObjectRule {
			return 0, 0, ErrUnsupportedOperation
		}
		return nlmsg.NFTType(nlmsg.MsgDelRule), nlmsg.FlagRequest | nlmsg.FlagAck, nil
	}
	return 0, 0, ErrUnsupportedOperation
}
