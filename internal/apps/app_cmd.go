package apps

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	teaconst "github.com/TeaOSLab/EdgeNFT/internal/const"
	"github.com/iwind/TeaGo/logs"
)

// AppCmd App命令帮助
type AppCmd struct {
	product       string
	version       string
	usages        []string
	options       []*CommandHelpOption
	appendStrings []string

	directives []*Directive
}

func NewAppCmd() *AppCmd {
	return &AppCmd{}
}

type CommandHelpOption struct {
	Code        string
	Description string
}

// Directive 指令
type Directive struct {
	Arg      string
	Callback func()
}

// Product 产品
func (this *AppCmd) Product(product string) *AppCmd {
	this.product = product
	return this
}

// Version 版本
func (this *AppCmd) Version(version string) *AppCmd {
	this.version = version
	return this
}

// Usage 使用方法
func (this *AppCmd) Usage(usage string) *AppCmd {
	this.usages = append(this.usages, usage)
	return this
}

// Option 选项
func (this *AppCmd) Option(code string, description string) *AppCmd {
	this.options = append(this.options, &CommandHelpOption{
		Code:        code,
		Description: description,
	})
	return this
}

// Append 附加内容
func (this *AppCmd) Append(appendString string) *AppCmd {
	this.appendStrings = append(this.appendStrings, appendString)
	return this
}

// Print 打印
func (this *AppCmd) Print() {
	fmt.Print(this.Help())
}

// Help text printed by 'help'
func (this *AppCmd) Help() string {
	var builder = &strings.Builder{}
	builder.WriteString(this.product + " v" + this.version + "\n")

	builder.WriteString("Usage:\n")
	for _, usage := range this.usages {
		builder.WriteString("   " + usage + "\n")
	}

	if len(this.options) > 0 {
		builder.WriteString("\nOptions:\n")

		var spaces = 20
		var max = 40
		for _, option := range this.options {
			var l = len(option.Code)
			if l < max && l > spaces {
				spaces = l + 4
			}
		}

		for _, option := range this.options {
			var code = option.Code
			if len(code) > max {
				builder.WriteString("\n  " + code + "\n")
				code = ""
			}
			builder.WriteString(fmt.Sprintf("  %-"+strconv.Itoa(spaces)+"s%s\n", code, ": "+option.Description))
		}
	}

	if len(this.appendStrings) > 0 {
		builder.WriteString("\n")
		for _, s := range this.appendStrings {
			builder.WriteString(s + "\n")
		}
	}
	return builder.String()
}

// On 添加指令
func (this *AppCmd) On(arg string, callback func()) *AppCmd {
	this.directives = append(this.directives, &Directive{
		Arg:      arg,
		Callback: callback,
	})
	return this
}

// Directives registered directive names, sorted
func (this *AppCmd) Directives() []string {
	var result = []string{}
	for _, directive := range this.directives {
		if strings.HasSuffix(directive.Arg, ":before") {
			continue
		}
		result = append(result, directive.Arg)
	}
	sort.Strings(result)
	return result
}

// Run 运行
func (this *AppCmd) Run(main func()) {
	this.RunArgs(os.Args[1:], main)
}

// RunArgs dispatch the first argument to a directive, main is called when no argument is given
func (this *AppCmd) RunArgs(args []string, main func()) {
	if len(args) > 0 {
		var mainArg = args[0]
		this.callDirective(mainArg + ":before")

		switch mainArg {
		case "-v", "version", "-version", "--version":
			this.runVersion()
			return
		case "?", "help", "-help", "h", "-h", "--help":
			this.runHelp()
			return
		}

		// 查找指令
		if this.callDirective(mainArg) {
			return
		}

		fmt.Println("unknown command '" + mainArg + "'")
		fmt.Println("run '" + teaconst.ProcessName + " help' to list commands")
		return
	}

	// 日志
	var writer = new(LogWriter)
	writer.Init()
	logs.SetWriter(writer)

	// 运行主函数
	main()
}

// 版本号
func (this *AppCmd) runVersion() {
	fmt.Println(this.product+" v"+this.version, "(build: "+runtime.Version(), runtime.GOOS, runtime.GOARCH, teaconst.Tag+")")
}

// 帮助
func (this *AppCmd) runHelp() {
	this.Print()
}

// ParseOptions 分析参数中的选项
func (this *AppCmd) ParseOptions(args []string) map[string][]string {
	var result = map[string][]string{}
	for _, arg := range args {
		var pieces = strings.SplitN(arg, "=", 2)
		var key = strings.TrimLeft(pieces[0], "- ")
		key = strings.TrimSpace(key)
		var value = ""
		if len(pieces) == 2 {
			value = strings.TrimSpace(pieces[1])
		}
		result[key] = append(result[key], value)
	}
	return result
}

func (this *AppCmd) callDirective(code string) bool {
	for _, directive := range this.directives {
		if directive.Arg == code {
			if directive.Callback != nil {
				directive.Callback()
			}
			return true
		}
	}
	return false
}
