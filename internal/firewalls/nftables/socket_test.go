// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftables_test

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nftest"
)

type fakeSocket = nftest.FakeSocket

var (
	newFakeSocket = nftest.NewFakeSocket
	splitMessages = nftest.SplitMessages
	errorMessage  = nftest.ErrorMessage
	doneMessage   = nftest.DoneMessage
	objectMessage = nftest.ObjectMessage
	ackAll        = nftest.AckAll
)
