package apps

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	teaconst "github.com/TeaOSLab/EdgeNFT/internal/const"
	"github.com/iwind/TeaGo/Tea"
	"github.com/iwind/TeaGo/files"
	"github.com/iwind/TeaGo/logs"
	"github.com/iwind/TeaGo/utils/time"
)

// LogWriter write logs to the console and logs/run.log
type LogWriter struct {
	fileAppender *files.Appender
}

func (this *LogWriter) Init() {
	this.InitFile(Tea.LogFile("run.log"))
}

// InitFile open the log file, the directory is created if needed
func (this *LogWriter) InitFile(path string) {
	// 创建目录
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		log.Println("[error]" + err.Error())
	}

	// 打开要写入的日志文件
	appender, err := files.NewFile(path).Appender()
	if err != nil {
		logs.Error(err)
	} else {
		this.fileAppender = appender
	}
}

func (this *LogWriter) Write(message string) {
	// 文件和行号
	var callDepth = 2
	var file string
	var line int
	var ok bool
	_, file, line, ok = runtime.Caller(callDepth)
	if ok {
		file = filepath.Base(file)
	}

	if !teaconst.IsDaemon {
		if len(file) > 0 {
			log.Println(message + " (" + file + ":" + strconv.Itoa(line) + ")")
		} else {
			log.Println(message)
		}
	}

	if this.fileAppender != nil {
		_, err := this.fileAppender.AppendString(timeutil.Format("Y/m/d H:i:s ") + message + "\n")
		if err != nil {
			log.Println("[error]" + err.Error())
		}
	}
}

func (this *LogWriter) Close() {
	if this.fileAppender != nil {
		_ = this.fileAppender.Close()
	}
}
