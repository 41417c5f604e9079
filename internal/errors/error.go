package errors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/utils"
)

// errorObj error with the location where it was created
type errorObj struct {
	err      error
	file     string
	line     int
	funcName string
}

func (this *errorObj) Error() string {
	var s = this.err.Error() + "\n  " + utils.RemoveWorkspace(this.file)
	if len(this.funcName) > 0 {
		s += ":" + this.funcName + "()"
	}
	return s + ":" + strconv.Itoa(this.line)
}

func (this *errorObj) Unwrap() error {
	return this.err
}

// New 新错误
func New(errText string) error {
	return withCaller(errors.New(errText), 2)
}

// Errorf 格式化错误，支持%w
func Errorf(format string, args ...any) error {
	return withCaller(fmt.Errorf(format, args...), 2)
}

// Wrap 包装已有错误
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return withCaller(err, 2)
}

func withCaller(err error, skip int) error {
	var obj = &errorObj{err: err}

	ptr, file, line, ok := runtime.Caller(skip)
	if ok {
		obj.file = file
		obj.line = line
		frame, _ := runtime.CallersFrames([]uintptr{ptr}).Next()
		obj.funcName = filepath.Base(frame.Function)
	}
	return obj
}
