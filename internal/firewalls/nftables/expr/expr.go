// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	AttrListElem nlattr.NetlinkType = 1 // NFTA_LIST_ELEM

	AttrExprName nlattr.NetlinkType = 1 // NFTA_EXPR_NAME
	AttrExprData nlattr.NetlinkType = 2 // NFTA_EXPR_DATA
)

var ErrInvalidMaskLength = errors.New("bitwise mask and xor must have the same length")

// Expression one match or action primitive of a rule
type Expression interface {
	// Name wire name, such as "cmp" or "payload"
	Name() string

	// Encode fields of the expression, nested under NFTA_EXPR_DATA
	Encode() (*nlattr.AttributeSet, error)

	// Decode fields returned by the kernel
	Decode(attrs *nlattr.AttributeSet) error

	String() string
}

// Constructor choose the concrete expression for decoded fields
type Constructor func(attrs *nlattr.AttributeSet) Expression

type factory struct {
	policy      nlattr.Policy
	constructor Constructor
}

var registry = map[string]*factory{}
var registryLocker = sync.RWMutex{}

// RegisterDecoder add a decoder for expressions named name
func RegisterDecoder(name string, policy nlattr.Policy, constructor Constructor) {
	registryLocker.Lock()
	registry[name] = &factory{
		policy:      policy,
		constructor: constructor,
	}
	registryLocker.Unlock()
}

func lookup(name string) (*factory, bool) {
	registryLocker.RLock()
	f, ok := registry[name]
	registryLocker.RUnlock()
	return f, ok
}

// Marshal encode one expression as a list element
func Marshal(e Expression) (*nlattr.AttributeSet, error) {
	var elem = nlattr.NewAttributeSet().Set(AttrExprName, nlattr.String(e.Name()))

	raw, ok := e.(*Raw)
	if ok {
		return elem.Set(AttrExprData, nlattr.Bytes(raw.Data)), nil
	}

	data, err := e.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode '%s' expression: %w", e.Name(), err)
	}
	if data == nil {
		data = nlattr.NewAttributeSet()
	}
	elem.Set(AttrExprData, data)
	err = elem.Validate()
	if err != nil {
		return nil, fmt.Errorf("encode '%s' expression: %w", e.Name(), err)
	}
	return elem, nil
}

// MarshalList encode expressions in order
func MarshalList(exprs []Expression) (*nlattr.List, error) {
	var list = nlattr.NewList(AttrListElem)
	for _, e := range exprs {
		elem, err := Marshal(e)
		if err != nil {
			return nil, err
		}
		list.Add(elem)
	}
	return list, nil
}

// DecodeList decoder of NFTA_RULE_EXPRESSIONS
// Fields are decoded with the policy registered for each element's name, unknown expressions keep raw bytes.
func DecodeList(data []byte) (nlattr.Attribute, error) {
	rawElems, err := nlattr.Parse(data)
	if err != nil {
		return nil, err
	}
	var list = nlattr.NewList(AttrListElem)
	for _, rawElem := range rawElems {
		if rawElem.Type != AttrListElem {
			continue
		}
		rawAttrs, err := nlattr.Parse(rawElem.Data)
		if err != nil {
			return nil, err
		}

		var elem = nlattr.NewAttributeSet()
		var name string
		var fields []byte
		var hasFields bool
		for _, rawAttr := range rawAttrs {
			switch rawAttr.Type {
			case AttrExprName:
				attr, err := nlattr.DecodeString(rawAttr.Data)
				if err != nil {
					return nil, err
				}
				name = string(attr.(nlattr.String))
				elem.Set(AttrExprName, attr)
			case AttrExprData:
				fields = rawAttr.Data
				hasFields = true
			}
		}
		if hasFields {
			f, ok := lookup(name)
			if ok {
				set, err := nlattr.Decode(fields, f.policy)
				if err != nil {
					return nil, err
				}
				elem.Set(AttrExprData, set)
			} else {
				attr, _ := nlattr.DecodeBytes(fields)
				elem.Set(AttrExprData, attr)
			}
		}
		list.Add(elem)
	}
	return list, nil
}

// Unmarshal build an expression from a decoded list element
func Unmarshal(elem *nlattr.AttributeSet) (Expression, error) {
	name, ok := elem.GetString(AttrExprName)
	if !ok {
		return nil, nlattr.Custom(errors.New("expression without name"))
	}

	dataAttr, _ := elem.Get(AttrExprData)
	f, ok := lookup(name)
	if !ok {
		var raw = &Raw{Kind: name}
		switch v := dataAttr.(type) {
		case nlattr.Bytes:
			raw.Data = append([]byte{}, v...)
		case *nlattr.AttributeSet:
			data, err := v.Encode()
			if err != nil {
				return nil, err
			}
			raw.Data = data
		}
		return raw, nil
	}

	var fields *nlattr.AttributeSet
	switch v := dataAttr.(type) {
	case *nlattr.AttributeSet:
		fields = v
	case nlattr.Bytes:
		set, err := nlattr.Decode(v, f.policy)
		if err != nil {
			return nil, err
		}
		fields = set
	default:
		fields = nlattr.NewAttributeSet()
	}

	var e = f.constructor(fields)
	err := e.Decode(fields)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UnmarshalList build expressions in list order
func UnmarshalList(list *nlattr.List) ([]Expression, error) {
	var result = []Expression{}
	if list == nil {
		return result, nil
	}
	for _, item := range list.Items {
		e, err := Unmarshal(item)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}
