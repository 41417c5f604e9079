// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftables

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/expr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

// enum nft_table_attributes
const (
	attrTableName   nlattr.NetlinkType = 1
	attrTableFlags  nlattr.NetlinkType = 2
	attrTableUse    nlattr.NetlinkType = 3
	attrTableHandle nlattr.NetlinkType = 4
)

// enum nft_chain_attributes
const (
	attrChainTable  nlattr.NetlinkType = 1
	attrChainHandle nlattr.NetlinkType = 2
	attrChainName   nlattr.NetlinkType = 3
	attrChainHook   nlattr.NetlinkType = 4
	attrChainPolicy nlattr.NetlinkType = 5
	attrChainUse    nlattr.NetlinkType = 6
	attrChainType   nlattr.NetlinkType = 7
)

// enum nft_hook_attributes
const (
	attrHookNum      nlattr.NetlinkType = 1
	attrHookPriority nlattr.NetlinkType = 2
)

// enum nft_rule_attributes
const (
	attrRuleTable       nlattr.NetlinkType = 1
	attrRuleChain       nlattr.NetlinkType = 2
	attrRuleHandle      nlattr.NetlinkType = 3
	attrRuleExpressions nlattr.NetlinkType = 4
	attrRulePosition    nlattr.NetlinkType = 6
	attrRuleUserData    nlattr.NetlinkType = 7
)

// enum nft_gen_attributes
const (
	attrGenID nlattr.NetlinkType = 1
)

var tablePolicy = nlattr.Policy{
	attrTableName:   nlattr.DecodeString,
	attrTableFlags:  nlattr.DecodeU32,
	attrTableUse:    nlattr.DecodeU32,
	attrTableHandle: nlattr.DecodeU64,
}

var chainPolicy = nlattr.Policy{
	attrChainTable:  nlattr.DecodeString,
	attrChainHandle: nlattr.DecodeU64,
	attrChainName:   nlattr.DecodeString,
	attrChainHook: nlattr.NestedPolicy(nlattr.Policy{
		attrHookNum:      nlattr.DecodeU32,
		attrHookPriority: nlattr.DecodeU32,
	}),
	attrChainPolicy: nlattr.DecodeU32,
	attrChainUse:    nlattr.DecodeU32,
	attrChainType:   nlattr.DecodeString,
}

var rulePolicy = nlattr.Policy{
	attrRuleTable:       nlattr.DecodeString,
	attrRuleChain:       nlattr.DecodeString,
	attrRuleHandle:      nlattr.DecodeU64,
	attrRuleExpressions: expr.DecodeList,
	attrRulePosition:    nlattr.DecodeU64,
	attrRuleUserData:    nlattr.DecodeBytes,
}

var genPolicy = nlattr.Policy{
	attrGenID: nlattr.DecodeU32,
}
