// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlmsg

// netlink control messages
const (
	TypeNoop  uint16 = 0x1 // NLMSG_NOOP
	TypeError uint16 = 0x2 // NLMSG_ERROR
	TypeDone  uint16 = 0x3 // NLMSG_DONE

	MinType uint16 = 0x10 // NLMSG_MIN_TYPE
)

// netlink header flags
const (
	FlagRequest  uint16 = 0x1
	FlagMulti    uint16 = 0x2
	FlagAck      uint16 = 0x4
	FlagEcho     uint16 = 0x8
	FlagDumpIntr uint16 = 0x10

	FlagRoot  uint16 = 0x100
	FlagMatch uint16 = 0x200
	FlagDump         = FlagRoot | FlagMatch

	FlagReplace uint16 = 0x100
	FlagExcl    uint16 = 0x200
	FlagCreate  uint16 = 0x400
	FlagAppend  uint16 = 0x800
)

const (
	SubsysNFTables uint8 = 10 // NFNL_SUBSYS_NFTABLES

	NetlinkV0 uint8 = 0 // NFNETLINK_V0
)

// nfnetlink batch delimiters, shared by all subsystems
const (
	MsgBatchBegin uint16 = 0x10
	MsgBatchEnd   uint16 = 0x11
)

// nftables operations, see enum nf_tables_msg_types
const (
	MsgNewTable uint16 = 0
	MsgGetTable uint16 = 1
	MsgDelTable uint16 = 2
	MsgNewChain uint16 = 3
	MsgGetChain uint16 = 4
	MsgDelChain uint16 = 5
	MsgNewRule  uint16 = 6
	MsgGetRule  uint16 = 7
	MsgDelRule  uint16 = 8
	MsgNewGen   uint16 = 15
	MsgGetGen   uint16 = 16
)

// NFTType message type of an nftables operation
func NFTType(op uint16) uint16 {
	return uint16(SubsysNFTables)<<8 | op
}

const (
	HeaderLen      = 16 // struct nlmsghdr
	NfgenmsgLen    = 4  // struct nfgenmsg
	ErrorLen       = 4 + HeaderLen
	MaxMessageSize = 65535 + 4096
)
