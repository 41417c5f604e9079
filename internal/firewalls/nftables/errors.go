// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package nftables

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

var ErrTableNotFound = errors.New("table not found")
var ErrChainNotFound = errors.New("chain not found")
var ErrRuleNotFound = errors.New("rule not found")

var ErrInvalidName = errors.New("invalid name")
var ErrInvalidFamily = errors.New("invalid family")
var ErrInterfaceNameTooLong = errors.New("interface name too long")
var ErrNotBaseChain = errors.New("only base chains can have a policy")
var ErrRuleHandleRequired = errors.New("rule handle required")
var ErrUnsupportedOperation = errors.New("unsupported operation")
var ErrBatchFinalized = errors.New("batch already finalized")
var ErrNotAcknowledged = errors.New("no acknowledgement received")

// ErrConcurrentGenerationUpdate the ruleset changed while it was being listed
var ErrConcurrentGenerationUpdate = nlattr.ErrConcurrentGenerationUpdate

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrChainNotFound) || errors.Is(err, ErrRuleNotFound) || errors.Is(err, syscall.ENOENT)
}

// IsRetryable check whether the whole read should be restarted from scratch
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentGenerationUpdate)
}

// KernelError error number returned by the kernel for one message
type KernelError struct {
	Seq  uint32
	Code int32
}

func (this *KernelError) Error() string {
	return fmt.Sprintf("nftables: seq %d: %s", this.Seq, syscall.Errno(this.Code).Error())
}

func (this *KernelError) Unwrap() error {
	return syscall.Errno(this.Code)
}
