package utils

import (
	"testing"

	"github.com/iwind/TeaGo/assert"
)

func TestIP2Long(t *testing.T) {
	var a = assert.NewAssertion(t)
	a.IsTrue(IP2Long("0.0.0.0") == 0)
	a.IsTrue(IP2Long("1.0.0.0") == 1<<24)
	a.IsTrue(IP2Long("0.0.0.0.0") == 0)
	a.IsTrue(IP2Long("2001:db8:0:1::101") != IP2Long("2001:db8:0:1::102"))
	t.Log(IP2Long("::1"))
}

func TestIsIPv6(t *testing.T) {
	var a = assert.NewAssertion(t)
	a.IsTrue(IsIPv6("::1"))
	a.IsFalse(IsIPv6("127.0.0.1"))
	a.IsFalse(IsIPv6("a:b:c"))
}

func TestIsLocalIP(t *testing.T) {
	var a = assert.NewAssertion(t)
	a.IsFalse(IsLocalIP("a"))
	a.IsFalse(IsLocalIP("1.2.3"))
	a.IsTrue(IsLocalIP("127.0.0.1"))
	a.IsTrue(IsLocalIP("192.168.0.1"))
	a.IsTrue(IsLocalIP("10.0.0.1"))
	a.IsTrue(IsLocalIP("172.16.0.1"))
	a.IsTrue(IsLocalIP("::1"))
	a.IsFalse(IsLocalIP("8.8.8.8"))
}

func TestParseIPNetwork(t *testing.T) {
	var a = assert.NewAssertion(t)

	{
		network, err := ParseIPNetwork("10.0.0.7/8")
		a.IsNil(err)
		a.IsTrue(network.String() == "10.0.0.0/8")
		a.IsTrue(len(network.IP) == 4)
		a.IsFalse(IsSingleIP(network))
	}
	{
		network, err := ParseIPNetwork("192.168.1.1")
		a.IsNil(err)
		a.IsTrue(network.String() == "192.168.1.1/32")
		a.IsTrue(IsSingleIP(network))
	}
	{
		network, err := ParseIPNetwork("2001:db8::1")
		a.IsNil(err)
		a.IsTrue(network.String() == "2001:db8::1/128")
		a.IsTrue(IsSingleIP(network))
	}
	{
		_, err := ParseIPNetwork("300.1.1.1")
		a.IsNotNil(err)
	}
	{
		_, err := ParseIPNetwork("1.1.1.1/33")
		a.IsNotNil(err)
	}
}
