package errors_test

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/errors"
	"github.com/iwind/TeaGo/assert"
)

func TestNew(t *testing.T) {
	var a = assert.NewAssertion(t)

	var err = errors.New("hello")
	t.Log(err)
	a.IsTrue(strings.HasPrefix(err.Error(), "hello\n"))
	a.IsTrue(strings.Contains(err.Error(), "error_test.go"))
}

func TestWrap(t *testing.T) {
	var a = assert.NewAssertion(t)

	a.IsNil(errors.Wrap(nil))

	var raw = stderrors.New("raw")
	var err = errors.Wrap(raw)
	t.Log(err)
	a.IsTrue(stderrors.Is(err, raw))
	a.IsTrue(stderrors.Unwrap(err) == raw)
}

func TestErrorf(t *testing.T) {
	var a = assert.NewAssertion(t)

	var raw = stderrors.New("raw")
	var err = errors.Errorf("apply failed: %w", raw)
	t.Log(err)
	a.IsTrue(stderrors.Is(err, raw))
	a.IsTrue(strings.HasPrefix(err.Error(), "apply failed: raw\n"))
	a.IsTrue(strings.Contains(err.Error(), "TestErrorf()"))
}
