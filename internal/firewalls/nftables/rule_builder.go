// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftables

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/expr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

// IFNAMSIZ including the terminating NUL
const maxInterfaceNameLength = 16

// IANA protocol numbers
const (
	protoICMP   uint8 = 1
	protoIGMP   uint8 = 2
	protoIPv6   uint8 = 41
	protoICMPv6 uint8 = 58
)

// Protocol layer 4 protocols with ports
type Protocol uint8

const (
	ProtocolTCP Protocol = 6
	ProtocolUDP Protocol = 17
)

func (this Protocol) String() string {
	switch this {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	}
	return fmt.Sprintf("proto %d", this)
}

// ParseProtocol "tcp" or "udp"
func ParseProtocol(name string) (Protocol, bool) {
	switch name {
	case "tcp", "TCP":
		return ProtocolTCP, true
	case "udp", "UDP":
		return ProtocolUDP, true
	}
	return 0, false
}

// Err first error met by the helpers below, it is also returned when the rule is queued
func (this *Rule) Err() error {
	return this.err
}

func (this *Rule) fail(err error) *Rule {
	if this.err == nil {
		this.err = err
	}
	return this
}

func (this *Rule) matchL4Proto(proto uint8) *Rule {
	return this.
		AddExpr(expr.NewMeta(expr.MetaKeyL4PROTO)).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, []byte{proto}))
}

func (this *Rule) matchNFProto(family TableFamily) *Rule {
	return this.
		AddExpr(expr.NewMeta(expr.MetaKeyNFPROTO)).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, []byte{uint8(family)}))
}

func (this *Rule) matchField(field expr.PayloadField) *Rule {
	payload, err := expr.NewPayloadField(field)
	if err != nil {
		return this.fail(err)
	}
	return this.AddExpr(payload)
}

// Protocol match tcp or udp packets
func (this *Rule) Protocol(protocol Protocol) *Rule {
	return this.matchL4Proto(uint8(protocol))
}

func (this *Rule) matchPort(port uint16, protocol Protocol, source bool) *Rule {
	var field expr.PayloadField
	switch protocol {
	case ProtocolTCP:
		field = expr.FieldTCPDPort
		if source {
			field = expr.FieldTCPSPort
		}
	case ProtocolUDP:
		field = expr.FieldUDPDPort
		if source {
			field = expr.FieldUDPSPort
		}
	default:
		return this.fail(fmt.Errorf("unsupported port protocol '%s'", protocol))
	}
	return this.
		Protocol(protocol).
		matchField(field).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, binary.BigEndian.AppendUint16(nil, port)))
}

// SPort match the source port
func (this *Rule) SPort(port uint16, protocol Protocol) *Rule {
	return this.matchPort(port, protocol, true)
}

// DPort match the destination port
func (this *Rule) DPort(port uint16, protocol Protocol) *Rule {
	return this.matchPort(port, protocol, false)
}

func (this *Rule) matchIP(ip net.IP, source bool) *Rule {
	var ip4 = ip.To4()
	if ip4 != nil {
		var field = expr.FieldIPv4DAddr
		if source {
			field = expr.FieldIPv4SAddr
		}
		return this.
			matchNFProto(TableFamilyIPv4).
			matchField(field).
			AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, ip4))
	}

	var ip16 = ip.To16()
	if ip16 == nil {
		return this.fail(fmt.Errorf("invalid ip '%s'", ip))
	}
	var field = expr.FieldIPv6DAddr
	if source {
		field = expr.FieldIPv6SAddr
	}
	return this.
		matchNFProto(TableFamilyIPv6).
		matchField(field).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, ip16))
}

func (this *Rule) SAddr(ip net.IP) *Rule {
	return this.matchIP(ip, true)
}

func (this *Rule) DAddr(ip net.IP) *Rule {
	return this.matchIP(ip, false)
}

func (this *Rule) matchNetwork(network *net.IPNet, source bool) *Rule {
	if network == nil {
		return this.fail(fmt.Errorf("invalid network"))
	}
	var ip = network.IP.To4()
	var mask = network.Mask
	var family = TableFamilyIPv4
	var field = expr.FieldIPv4DAddr
	if source {
		field = expr.FieldIPv4SAddr
	}
	if ip == nil || len(mask) != net.IPv4len {
		ip = network.IP.To16()
		family = TableFamilyIPv6
		field = expr.FieldIPv6DAddr
		if source {
			field = expr.FieldIPv6SAddr
		}
	}
	if ip == nil || len(mask) != len(ip) {
		return this.fail(fmt.Errorf("invalid network '%s'", network))
	}

	bitwise, err := expr.NewBitwise(mask, make([]byte, len(mask)))
	if err != nil {
		return this.fail(err)
	}
	return this.
		matchNFProto(family).
		matchField(field).
		AddExpr(bitwise).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, ip.Mask(mask)))
}

// SNetwork match source addresses in network
func (this *Rule) SNetwork(network *net.IPNet) *Rule {
	return this.matchNetwork(network, true)
}

// DNetwork match destination addresses in network
func (this *Rule) DNetwork(network *net.IPNet) *Rule {
	return this.matchNetwork(network, false)
}

func (this *Rule) ICMP() *Rule {
	return this.matchL4Proto(protoICMP)
}

func (this *Rule) ICMPv6() *Rule {
	return this.matchL4Proto(protoICMPv6)
}

func (this *Rule) IGMP() *Rule {
	return this.matchL4Proto(protoIGMP)
}

// IP4in6 IPv6 packets whose next header is 60
func (this *Rule) IP4in6() *Rule {
	return this.
		matchNFProto(TableFamilyIPv6).
		matchField(expr.FieldIPv6NextHeader).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, []byte{60}))
}

// IP6in4 IPv4 packets carrying IPv6 (protocol 41)
func (this *Rule) IP6in4() *Rule {
	return this.
		matchNFProto(TableFamilyIPv4).
		matchField(expr.FieldIPv4Protocol).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, []byte{protoIPv6}))
}

// Established match packets of established connections
func (this *Rule) Established() *Rule {
	// ct state is a host order value
	var mask = binary.NativeEndian.AppendUint32(nil, expr.CtStateBitEstablished)
	bitwise, err := expr.NewBitwise(mask, make([]byte, 4))
	if err != nil {
		return this.fail(err)
	}
	return this.
		AddExpr(expr.NewConntrackState()).
		AddExpr(bitwise).
		AddExpr(expr.NewCmp(expr.CmpOpNeq, expr.Reg1, make([]byte, 4)))
}

// IifIndex match the input interface index, see InterfaceIndex()
func (this *Rule) IifIndex(index uint32) *Rule {
	return this.
		AddExpr(expr.NewMeta(expr.MetaKeyIIF)).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, binary.NativeEndian.AppendUint32(nil, index)))
}

// OifIndex match the output interface index
func (this *Rule) OifIndex(index uint32) *Rule {
	return this.
		AddExpr(expr.NewMeta(expr.MetaKeyOIF)).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, binary.NativeEndian.AppendUint32(nil, index)))
}

func (this *Rule) matchInterfaceName(key expr.MetaKey, name string) *Rule {
	if len(name) >= maxInterfaceNameLength {
		return this.fail(fmt.Errorf("%w: '%s'", ErrInterfaceNameTooLong, name))
	}
	var data = append([]byte(name), 0)
	return this.
		AddExpr(expr.NewMeta(key)).
		AddExpr(expr.NewCmp(expr.CmpOpEq, expr.Reg1, data))
}

// Iif match the input interface name, such as "eth0"
func (this *Rule) Iif(name string) *Rule {
	return this.matchInterfaceName(expr.MetaKeyIIFNAME, name)
}

// Oif match the output interface name
func (this *Rule) Oif(name string) *Rule {
	return this.matchInterfaceName(expr.MetaKeyOIFNAME, name)
}

// Syn match tcp packets with SYN set
func (this *Rule) Syn() *Rule {
	bitwise, err := expr.NewBitwise([]byte{0x02}, []byte{0})
	if err != nil {
		return this.fail(err)
	}
	return this.
		matchField(expr.FieldTCPFlags).
		AddExpr(bitwise).
		AddExpr(expr.NewCmp(expr.CmpOpNeq, expr.Reg1, []byte{0}))
}

func (this *Rule) writeMSS() *Rule {
	return this.AddExpr(&expr.ExtHdr{
		Op:             expr.ExtHdrOpTCPOpt,
		Type:           expr.TCPOptMaxSeg,
		Offset:         2,
		Len:            2,
		Register:       expr.Reg1,
		SourceRegister: true,
	})
}

// SetMSS rewrite the tcp mss option
func (this *Rule) SetMSS(mss uint16) *Rule {
	return this.
		AddExpr(expr.NewImmediate(expr.Reg1, binary.BigEndian.AppendUint16(nil, mss))).
		writeMSS()
}

// ClampMSSToPMTU rewrite the tcp mss option to the path mtu
func (this *Rule) ClampMSSToPMTU() *Rule {
	return this.
		AddExpr(&expr.Rt{
			Register: expr.Reg1,
			Key:      expr.RtKeyTCPMSS,
		}).
		AddExpr(&expr.Byteorder{
			SourceRegister: expr.Reg1,
			DestRegister:   expr.Reg1,
			Op:             expr.ByteorderHtoN,
			Len:            2,
			Size:           2,
		}).
		writeMSS()
}

// DNat rewrite the destination address, and the port if it is not 0
func (this *Rule) DNat(ip net.IP, port uint16) *Rule {
	var family = nlattr.ProtoIPv4
	var data = ip.To4()
	if data == nil {
		family = nlattr.ProtoIPv6
		data = ip.To16()
	}
	if data == nil {
		return this.fail(fmt.Errorf("invalid ip '%s'", ip))
	}

	var nat = &expr.Nat{
		Type:       expr.NatTypeDestNat,
		Family:     family,
		RegAddrMin: expr.Reg1,
	}
	this.AddExpr(expr.NewImmediate(expr.Reg1, data))
	if port > 0 {
		this.AddExpr(expr.NewImmediate(expr.Reg2, binary.BigEndian.AppendUint16(nil, port)))
		nat.RegProtoMin = expr.Reg2
	}
	return this.AddExpr(nat)
}

func (this *Rule) Masquerade() *Rule {
	return this.AddExpr(&expr.Masquerade{})
}

func (this *Rule) Counter() *Rule {
	return this.AddExpr(&expr.Counter{})
}

func (this *Rule) Accept() *Rule {
	return this.AddExpr(expr.Accept())
}

func (this *Rule) Drop() *Rule {
	return this.AddExpr(expr.Drop())
}

func (this *Rule) Reject() *Rule {
	return this.AddExpr(expr.NewReject())
}

func (this *Rule) Jump(chain string) *Rule {
	return this.AddExpr(expr.Jump(chain))
}

func (this *Rule) Goto(chain string) *Rule {
	return this.AddExpr(expr.Goto(chain))
}
