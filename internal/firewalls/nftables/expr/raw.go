// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

// Raw expression listed by the kernel without a registered decoder
// Data holds the NFTA_EXPR_DATA payload as received.
type Raw struct {
	Kind string
	Data []byte
}

func (this *Raw) Name() string {
	return this.Kind
}

// Encode fields as opaque bytes, Marshal sends Data unchanged
func (this *Raw) Encode() (*nlattr.AttributeSet, error) {
	rawAttrs, err := nlattr.Parse(this.Data)
	if err != nil {
		return nil, err
	}
	var attrs = nlattr.NewAttributeSet()
	for _, rawAttr := range rawAttrs {
		attrs.Set(rawAttr.Type, nlattr.Bytes(rawAttr.Data))
	}
	return attrs, nil
}

func (this *Raw) Decode(attrs *nlattr.AttributeSet) error {
	data, err := attrs.Encode()
	if err != nil {
		return err
	}
	this.Data = data
	return nil
}

func (this *Raw) String() string {
	return this.Kind + " " + hexBytes(this.Data)
}
