// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package nftables

import (
	"errors"
	"fmt"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/iwind/TeaGo/types"
)

// MaxTableNameLength NFT_NAME_MAXLEN without the terminating NUL
const MaxTableNameLength = 255

// Table table object, the family is carried in the message header
type Table struct {
	Name   string
	Family TableFamily
	Flags  uint32

	// set by listings only
	Use    uint32
	Handle uint64
}

func NewTable(name string, family TableFamily) *Table {
	return &Table{
		Name:   name,
		Family: family,
	}
}

func NewIPv4Table(name string) *Table {
	return NewTable(name, TableFamilyIPv4)
}

func NewIPv6Table(name string) *Table {
	return NewTable(name, TableFamilyIPv6)
}

func (this *Table) Kind() ObjectKind {
	return ObjectTable
}

func (this *Table) Validate() error {
	if len(this.Name) == 0 {
		return fmt.Errorf("%w: empty table name", ErrInvalidName)
	}
	if len(this.Name) > MaxTableNameLength {
		return fmt.Errorf("%w: table name too long (max %s)", ErrInvalidName, types.String(MaxTableNameLength))
	}
	if !isTableFamily(this.Family) {
		return fmt.Errorf("%w: '%s'", ErrInvalidFamily, this.Family)
	}
	return nil
}

func (this *Table) String() string {
	return "table " + this.Family.String() + " " + this.Name
}

func (this *Table) nfgenFamily() TableFamily {
	return this.Family
}

func (this *Table) attributes(op Operation) (*nlattr.AttributeSet, error) {
	err := this.Validate()
	if err != nil {
		return nil, err
	}
	var attrs = nlattr.NewAttributeSet()
	switch op {
	case OpAdd, OpEnsure:
		attrs.Set(attrTableName, nlattr.String(this.Name))
		if this.Flags > 0 {
			attrs.Set(attrTableFlags, nlattr.U32(this.Flags))
		}
	case OpFlush:
		// flushing rules of a table is a rule deletion scoped by table name
		attrs.Set(attrRuleTable, nlattr.String(this.Name))
	default:
		attrs.Set(attrTableName, nlattr.String(this.Name))
	}
	return attrs, nil
}

func tableFromAttributes(family TableFamily, attrs *nlattr.AttributeSet) (*Table, error) {
	name, ok := attrs.GetString(attrTableName)
	if !ok {
		return nil, nlattr.Custom(errors.New("table without name"))
	}
	var table = NewTable(name, family)
	table.Flags, _ = attrs.GetU32(attrTableFlags)
	table.Use, _ = attrs.GetU32(attrTableUse)
	table.Handle, _ = attrs.GetU64(attrTableHandle)
	return table, nil
}
