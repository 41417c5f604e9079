// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package configs

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/utils"
	"github.com/go-playground/validator/v10"
)

// ValidationError one invalid field
type ValidationError struct {
	FieldPath string // such as "tables[0].chains[1].name"
	Message   string
}

type ValidationErrors []ValidationError

func (this ValidationErrors) Error() string {
	if len(this) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):", len(this)))
	for i, err := range this {
		sb.WriteString(fmt.Sprintf("\n  %d. %s: %s", i+1, err.FieldPath, err.Message))
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	for tag, fn := range map[string]validator.Func{
		"family":     validateFamily,
		"hook":       validateHook,
		"ip_network": validateIPNetwork,
	} {
		err := validate.RegisterValidation(tag, fn)
		if err != nil {
			panic(err)
		}
	}

	// use yaml names in field paths
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		var name = strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateFamily(fl validator.FieldLevel) bool {
	family, ok := nlattr.ParseProtoFamily(fl.Field().String())
	return ok && family != nlattr.ProtoUnspec
}

func validateHook(fl validator.FieldLevel) bool {
	_, ok := nftables.ParseChainHook(fl.Field().String())
	return ok
}

func validateIPNetwork(fl validator.FieldLevel) bool {
	_, err := utils.ParseIPNetwork(fl.Field().String())
	return err == nil
}

// Validate check fields and references between tables, chains and rules
func (this *RulesetConfig) Validate() error {
	var validationErrors ValidationErrors

	err := validate.Struct(this)
	if err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err)...)
		return validationErrors
	}

	var tableKeys = map[string]bool{}
	for tableIndex, table := range this.Tables {
		var tablePath = fmt.Sprintf("tables[%d]", tableIndex)
		var key = table.Family + " " + table.Name
		if tableKeys[key] {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: tablePath + ".name",
				Message:   "duplicate table '" + key + "'",
			})
		}
		tableKeys[key] = true

		var chainNames = map[string]*ChainConfig{}
		for chainIndex, chain := range table.Chains {
			var chainPath = fmt.Sprintf("%s.chains[%d]", tablePath, chainIndex)
			_, ok := chainNames[chain.Name]
			if ok {
				validationErrors = append(validationErrors, ValidationError{
					FieldPath: chainPath + ".name",
					Message:   "duplicate chain '" + chain.Name + "'",
				})
			}
			chainNames[chain.Name] = chain

			if !chain.IsBaseChain() {
				if len(chain.Policy) > 0 {
					validationErrors = append(validationErrors, ValidationError{
						FieldPath: chainPath + ".policy",
						Message:   "policy needs a hook",
					})
				}
				if len(chain.Type) > 0 {
					validationErrors = append(validationErrors, ValidationError{
						FieldPath: chainPath + ".type",
						Message:   "type needs a hook",
					})
				}
			}
		}

		for chainIndex, chain := range table.Chains {
			for ruleIndex, rule := range chain.Rules {
				var rulePath = fmt.Sprintf("%s.chains[%d].rules[%d]", tablePath, chainIndex, ruleIndex)
				for _, message := range rule.check(chain, chainNames) {
					validationErrors = append(validationErrors, ValidationError{
						FieldPath: rulePath,
						Message:   message,
					})
				}
			}
		}
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

// check rule consistency which can not be expressed with tags
func (this *RuleConfig) check(chain *ChainConfig, chainNames map[string]*ChainConfig) []string {
	var messages = []string{}
	if (this.SPort > 0 || this.DPort > 0) && this.Protocol != "tcp" && this.Protocol != "udp" {
		messages = append(messages, "ports need protocol 'tcp' or 'udp'")
	}
	if this.Syn && this.Protocol != "tcp" {
		messages = append(messages, "syn needs protocol 'tcp'")
	}
	if (this.SetMSS > 0 || this.ClampMSS) && this.Protocol != "tcp" {
		messages = append(messages, "mss needs protocol 'tcp'")
	}
	if this.SetMSS > 0 && this.ClampMSS {
		messages = append(messages, "setMSS and clampMSS can not be used together")
	}
	if this.DNatPort > 0 && len(this.DNat) == 0 {
		messages = append(messages, "dnatPort needs dnat")
	}
	if (len(this.DNat) > 0 || this.Masquerade) && chain.Type != "nat" {
		messages = append(messages, "nat statements need a chain of type 'nat'")
	}
	if len(this.DNat) > 0 && this.Masquerade {
		messages = append(messages, "dnat and masquerade can not be used together")
	}
	if len(this.SAddr) > 0 && len(this.DAddr) > 0 && isIPv6(this.SAddr) != isIPv6(this.DAddr) {
		messages = append(messages, "saddr and daddr must be of the same family")
	}
	if len(this.Target) > 0 {
		if this.Action != "jump" && this.Action != "goto" {
			messages = append(messages, "target needs action 'jump' or 'goto'")
		} else {
			target, ok := chainNames[this.Target]
			if !ok {
				messages = append(messages, "target chain '"+this.Target+"' not found")
			} else if target.IsBaseChain() {
				messages = append(messages, "target chain '"+this.Target+"' is a base chain")
			}
		}
	}
	return messages
}

func isIPv6(s string) bool {
	network, err := utils.ParseIPNetwork(s)
	return err == nil && len(network.IP) == net.IPv6len
}

func convertValidatorErrors(err error) ValidationErrors {
	var result ValidationErrors

	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return ValidationErrors{{
			Message: err.Error(),
		}}
	}
	for _, e := range validatorErrs {
		// strip the name of the root struct
		var path = e.Namespace()
		var index = strings.Index(path, ".")
		if index >= 0 {
			path = path[index+1:]
		}
		result = append(result, ValidationError{
			FieldPath: path,
			Message:   validationMessage(e),
		})
	}
	return result
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required by action 'jump' and 'goto'"
	case "min":
		return "needs at least " + e.Param() + " item(s)"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "family":
		return "invalid family '" + fmt.Sprint(e.Value()) + "'"
	case "hook":
		return "invalid hook '" + fmt.Sprint(e.Value()) + "'"
	case "ip", "ip_network":
		return "invalid address '" + fmt.Sprint(e.Value()) + "'"
	}
	return "failed on '" + e.Tag() + "'"
}
