// Copyright 2023 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package firewalls_test

import (
	"testing"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls"
	"github.com/TeaOSLab/EdgeNFT/internal/utils/testutils"
	"github.com/iwind/TeaGo/assert"
)

func TestExpiration_Add(t *testing.T) {
	var a = assert.NewAssertion(t)

	var expiration = firewalls.NewExpiration()
	{
		expiration.Add("abc", time.Now().Add(1*time.Second))
		a.IsTrue(expiration.Contains("abc"))
	}
	{
		expiration.Add("abc", time.Time{})
		a.IsTrue(expiration.Contains("abc"))
	}
	{
		expiration.Add("abc", time.Now().Add(-1*time.Second))
		a.IsFalse(expiration.Contains("abc"))
	}
	{
		expiration.Add("abc", time.Now().Add(1*time.Second))
		expiration.Remove("abc")
		a.IsFalse(expiration.Contains("abc"))
	}
	{
		expiration.Add("10.254.0.75", time.Now().Add(time.Minute))
		a.IsTrue(expiration.Contains("10.254.0.75"))
	}
}

func TestExpiration_PopExpired(t *testing.T) {
	var a = assert.NewAssertion(t)

	var expiration = firewalls.NewExpiration()
	var now = time.Now()
	expiration.Add("a", now.Add(-time.Second))
	expiration.Add("b", now)
	expiration.Add("c", now.Add(time.Hour))
	expiration.Add("d", time.Time{})

	var keys = expiration.PopExpired(now)
	a.IsTrue(len(keys) == 2)
	a.IsTrue(expiration.Len() == 2)
	a.IsTrue(len(expiration.PopExpired(now)) == 0)
}

func BenchmarkExpiration_Add(b *testing.B) {
	var expiration = firewalls.NewExpiration()
	for i := 0; i < 10_000; i++ {
		expiration.Add(testutils.RandIP(), time.Now().Add(3600*time.Second))
	}
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			expiration.Add(testutils.RandIP(), time.Now().Add(3600*time.Second))
		}
	})
}
