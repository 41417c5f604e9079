package remotelogs

import (
	"sync"
	"time"

	teaconst "github.com/TeaOSLab/EdgeNFT/internal/const"
	"github.com/TeaOSLab/EdgeNFT/internal/goman"
	"github.com/cespare/xxhash/v2"
	"github.com/iwind/TeaGo/logs"
)

// Log one log entry waiting to be uploaded
type Log struct {
	Role        string `json:"role"`
	Tag         string `json:"tag"`
	Description string `json:"description"`
	Level       string `json:"level"`
	CreatedAt   int64  `json:"createdAt"`
}

// Sink receiver of collected logs
type Sink interface {
	Write(logList []*Log) error
}

var logChan = make(chan *Log, 1024)

var sinkLocker = &sync.RWMutex{}
var sharedSink Sink

func init() {
	// 定期上传日志
	goman.New(func() {
		var ticker = time.NewTicker(60 * time.Second)
		for range ticker.C {
			err := Flush()
			if err != nil {
				logs.Println("[LOG]" + err.Error())
			}
		}
	})
}

// SetSink 设置日志接收者，nil表示只打印
func SetSink(sink Sink) {
	sinkLocker.Lock()
	sharedSink = sink
	sinkLocker.Unlock()
}

func currentSink() Sink {
	sinkLocker.RLock()
	defer sinkLocker.RUnlock()
	return sharedSink
}

// Println 打印普通信息
func Println(tag string, description string) {
	logs.Println("[" + tag + "]" + description)
	push(tag, description, "info")
}

// Warn 打印警告信息
func Warn(tag string, description string) {
	logs.Println("[" + tag + "]" + description)
	push(tag, description, "warning")
}

// Error 打印错误信息
func Error(tag string, description string) {
	logs.Println("[" + tag + "]" + description)
	push(tag, description, "error")
}

// Success 打印成功信息
func Success(tag string, description string) {
	logs.Println("[" + tag + "]" + description)
	push(tag, description, "success")
}

// ErrorObject 打印错误对象
func ErrorObject(tag string, err error) {
	if err == nil {
		return
	}
	Error(tag, err.Error())
}

func push(tag string, description string, level string) {
	if currentSink() == nil {
		return
	}

	select {
	case logChan <- &Log{
		Role:        teaconst.Role,
		Tag:         tag,
		Description: description,
		Level:       level,
		CreatedAt:   time.Now().Unix(),
	}:
	default:

	}
}

// Flush 将缓存的日志写入接收者
func Flush() error {
	var logList = []*Log{}

	const hashSize = 5
	var hashList = []uint64{}

Loop:
	for {
		select {
		case log := <-logChan:
			// 是否已存在
			var hash = xxhash.Sum64String(log.Tag + "_" + log.Description)
			var found = false
			for _, h := range hashList {
				if h == hash {
					found = true
					break
				}
			}

			// 加入
			if !found {
				hashList = append(hashList, hash)
				if len(hashList) > hashSize {
					hashList = hashList[1:]
				}

				logList = append(logList, log)
			}
		default:
			break Loop
		}
	}
	if len(logList) == 0 {
		return nil
	}

	var sink = currentSink()
	if sink == nil {
		return nil
	}
	return sink.Write(logList)
}
