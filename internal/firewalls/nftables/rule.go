// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package nftables

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/expr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

// ChainRef identity of the chain a rule belongs to
type ChainRef struct {
	Table  string
	Chain  string
	Family TableFamily
}

func (this ChainRef) Validate() error {
	if len(this.Table) == 0 || len(this.Table) > MaxTableNameLength {
		return fmt.Errorf("%w: table '%s'", ErrInvalidName, this.Table)
	}
	if len(this.Chain) == 0 || len(this.Chain) > MaxChainNameLength {
		return fmt.Errorf("%w: chain '%s'", ErrInvalidName, this.Chain)
	}
	if !isTableFamily(this.Family) {
		return fmt.Errorf("%w: '%s'", ErrInvalidFamily, this.Family)
	}
	return nil
}

func (this ChainRef) String() string {
	return this.Family.String() + " " + this.Table + " " + this.Chain
}

// Rule ordered expressions evaluated in a chain
type Rule struct {
	chain ChainRef
	exprs []expr.Expression

	handle    uint64
	hasHandle bool

	position    uint64
	hasPosition bool

	UserData []byte

	err error
}

func NewRule(chain *Chain) *Rule {
	return &Rule{
		chain: chain.Ref(),
	}
}

func NewRuleWithRef(ref ChainRef) *Rule {
	return &Rule{
		chain: ref,
	}
}

func (this *Rule) Kind() ObjectKind {
	return ObjectRule
}

func (this *Rule) Chain() ChainRef {
	return this.chain
}

// AddExpr append an expression, expressions run in the order they were added
func (this *Rule) AddExpr(e expr.Expression) *Rule {
	this.exprs = append(this.exprs, e)
	return this
}

func (this *Rule) Exprs() []expr.Expression {
	return this.exprs
}

func (this *Rule) SetHandle(handle uint64) *Rule {
	this.handle = handle
	this.hasHandle = true
	return this
}

// Handle kernel assigned handle, only known after listing
func (this *Rule) Handle() (uint64, bool) {
	return this.handle, this.hasHandle
}

// SetPosition handle of the rule this one is added after
func (this *Rule) SetPosition(position uint64) *Rule {
	this.position = position
	this.hasPosition = true
	return this
}

func (this *Rule) Position() (uint64, bool) {
	return this.position, this.hasPosition
}

// Equal same chain, and both rules carry equal handles and positions
// Rules without a handle or position are never equal, even with identical expressions. Use DeepEqual to compare content.
func (this *Rule) Equal(other *Rule) bool {
	if other == nil || this.chain != other.chain {
		return false
	}
	if !this.hasHandle || !other.hasHandle || this.handle != other.handle {
		return false
	}
	if !this.hasPosition || !other.hasPosition || this.position != other.position {
		return false
	}
	return true
}

// DeepEqual same chain and pairwise equal expression renderings
func (this *Rule) DeepEqual(other *Rule) bool {
	if other == nil || this.chain != other.chain {
		return false
	}
	if len(this.exprs) != len(other.exprs) {
		return false
	}
	for index, e := range this.exprs {
		if e.String() != other.exprs[index].String() {
			return false
		}
	}
	return true
}

// VerDict verdict of the last verdict expression, -100 if there is none
func (this *Rule) VerDict() expr.VerdictKind {
	for i := len(this.exprs) - 1; i >= 0; i-- {
		verdict, ok := this.exprs[i].(*expr.Verdict)
		if ok {
			return verdict.Kind
		}
	}
	return -100
}

func (this *Rule) String() string {
	var pieces = []string{}
	for _, e := range this.exprs {
		pieces = append(pieces, "["+e.String()+"]")
	}
	var s = "rule " + this.chain.String()
	if this.hasHandle {
		s += fmt.Sprintf(" handle %d", this.handle)
	}
	return s + " " + strings.Join(pieces, " ")
}

func (this *Rule) nfgenFamily() TableFamily {
	return this.chain.Family
}

func (this *Rule) attributes(op Operation) (*nlattr.AttributeSet, error) {
	err := this.chain.Validate()
	if err != nil {
		return nil, err
	}

	var attrs = nlattr.NewAttributeSet().
		Set(attrRuleTable, nlattr.String(this.chain.Table)).
		Set(attrRuleChain, nlattr.String(this.chain.Chain))

	switch op {
	case OpAdd:
		if this.err != nil {
			return nil, this.err
		}
		list, err := expr.MarshalList(this.exprs)
		if err != nil {
			return nil, err
		}
		attrs.Set(attrRuleExpressions, list)
		if this.hasPosition {
			attrs.Set(attrRulePosition, nlattr.U64(this.position))
		}
		if len(this.UserData) > 0 {
			attrs.Set(attrRuleUserData, nlattr.Bytes(this.UserData))
		}
	case OpDelete:
		if !this.hasHandle {
			return nil, ErrRuleHandleRequired
		}
		attrs.Set(attrRuleHandle, nlattr.U64(this.handle))
	default:
		return nil, ErrUnsupportedOperation
	}
	return attrs, nil
}

func ruleFromAttributes(family TableFamily, attrs *nlattr.AttributeSet) (*Rule, error) {
	tableName, _ := attrs.GetString(attrRuleTable)
	chainName, ok := attrs.GetString(attrRuleChain)
	if !ok {
		return nil, nlattr.Custom(errors.New("rule without chain"))
	}
	var rule = NewRuleWithRef(ChainRef{
		Table:  tableName,
		Chain:  chainName,
		Family: family,
	})

	handle, ok := attrs.GetU64(attrRuleHandle)
	if ok {
		rule.SetHandle(handle)
	}
	position, ok := attrs.GetU64(attrRulePosition)
	if ok {
		rule.SetPosition(position)
	}
	rule.UserData, _ = attrs.GetBytes(attrRuleUserData)

	list, _ := attrs.GetList(attrRuleExpressions)
	exprs, err := expr.UnmarshalList(list)
	if err != nil {
		return nil, err
	}
	rule.exprs = exprs
	return rule, nil
}
