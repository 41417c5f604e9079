// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"fmt"
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrRejectType     nlattr.NetlinkType = 1
	attrRejectICMPCode nlattr.NetlinkType = 2
)

// VerdictKind kernel verdict codes, except VerdictReject which is sent as a reject expression
type VerdictKind int32

const (
	VerdictDrop     VerdictKind = 0
	VerdictAccept   VerdictKind = 1
	VerdictQueue    VerdictKind = 3
	VerdictContinue VerdictKind = -1
	VerdictBreak    VerdictKind = -2
	VerdictJump     VerdictKind = -3
	VerdictGoto     VerdictKind = -4
	VerdictReturn   VerdictKind = -5

	VerdictReject VerdictKind = 0x100
)

func (this VerdictKind) String() string {
	switch this {
	case VerdictDrop:
		return "drop"
	case VerdictAccept:
		return "accept"
	case VerdictQueue:
		return "queue"
	case VerdictContinue:
		return "continue"
	case VerdictBreak:
		return "break"
	case VerdictJump:
		return "jump"
	case VerdictGoto:
		return "goto"
	case VerdictReturn:
		return "return"
	case VerdictReject:
		return "reject"
	}
	return "verdict " + strconv.Itoa(int(this))
}

// RejectType see enum nft_reject_types
type RejectType uint32

const (
	RejectTypeICMPUnreach  RejectType = 0
	RejectTypeTCPRst       RejectType = 1
	RejectTypeICMPXUnreach RejectType = 2
)

// ICMPX unreachable codes, see enum nft_reject_inet_code
const (
	RejectCodeNoRoute         uint8 = 0
	RejectCodePortUnreach     uint8 = 1
	RejectCodeHostUnreach     uint8 = 2
	RejectCodeAdminProhibited uint8 = 3
)

func init() {
	RegisterDecoder("reject", nlattr.Policy{
		attrRejectType:     nlattr.DecodeU32,
		attrRejectICMPCode: nlattr.DecodeU8,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Verdict{Kind: VerdictReject}
	})
}

// Verdict terminal decision of a rule
type Verdict struct {
	Kind  VerdictKind
	Chain string // target of VerdictJump and VerdictGoto

	RejectType RejectType
	RejectCode uint8
}

func NewVerdict(kind VerdictKind) *Verdict {
	if kind == VerdictReject {
		return NewReject()
	}
	return &Verdict{
		Kind: kind,
	}
}

func Accept() *Verdict {
	return NewVerdict(VerdictAccept)
}

func Drop() *Verdict {
	return NewVerdict(VerdictDrop)
}

// NewReject reject with an ICMPX host unreachable message
func NewReject() *Verdict {
	return &Verdict{
		Kind:       VerdictReject,
		RejectType: RejectTypeICMPXUnreach,
		RejectCode: RejectCodeHostUnreach,
	}
}

func NewRejectWith(rejectType RejectType, code uint8) *Verdict {
	return &Verdict{
		Kind:       VerdictReject,
		RejectType: rejectType,
		RejectCode: code,
	}
}

func Jump(chain string) *Verdict {
	return &Verdict{
		Kind:  VerdictJump,
		Chain: chain,
	}
}

func Goto(chain string) *Verdict {
	return &Verdict{
		Kind:  VerdictGoto,
		Chain: chain,
	}
}

func (this *Verdict) Name() string {
	if this.Kind == VerdictReject {
		return "reject"
	}
	return "immediate"
}

func (this *Verdict) Encode() (*nlattr.AttributeSet, error) {
	if this.Kind == VerdictReject {
		return nlattr.NewAttributeSet().
			Set(attrRejectType, nlattr.U32(this.RejectType)).
			Set(attrRejectICMPCode, nlattr.U8(this.RejectCode)), nil
	}

	var verdict = nlattr.NewAttributeSet().Set(AttrVerdictCode, nlattr.U32(uint32(this.Kind)))
	if this.Kind == VerdictJump || this.Kind == VerdictGoto {
		if len(this.Chain) == 0 {
			return nil, fmt.Errorf("'%s' verdict requires a target chain", this.Kind)
		}
		verdict.Set(AttrVerdictChain, nlattr.String(this.Chain))
	}
	return nlattr.NewAttributeSet().
		Set(attrImmediateDReg, nlattr.U32(RegVerdict)).
		Set(attrImmediateData, nlattr.NewAttributeSet().Set(AttrDataVerdict, verdict)), nil
}

func (this *Verdict) Decode(attrs *nlattr.AttributeSet) error {
	if this.Kind == VerdictReject {
		rejectType, _ := attrs.GetU32(attrRejectType)
		this.RejectType = RejectType(rejectType)
		this.RejectCode, _ = attrs.GetU8(attrRejectICMPCode)
		return nil
	}

	data, _ := attrs.GetSet(attrImmediateData)
	verdict, ok := data.GetSet(AttrDataVerdict)
	if !ok {
		return nlattr.Custom(fmt.Errorf("immediate verdict without verdict data"))
	}
	code, _ := verdict.GetU32(AttrVerdictCode)
	this.Kind = VerdictKind(int32(code))
	this.Chain, _ = verdict.GetString(AttrVerdictChain)
	return nil
}

func (this *Verdict) String() string {
	switch this.Kind {
	case VerdictJump, VerdictGoto:
		return this.Kind.String() + " " + this.Chain
	case VerdictReject:
		return fmt.Sprintf("reject type %d code %d", this.RejectType, this.RejectCode)
	}
	return this.Kind.String()
}
