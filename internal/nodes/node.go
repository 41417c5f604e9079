package nodes

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	teaconst "github.com/TeaOSLab/EdgeNFT/internal/const"
	"github.com/TeaOSLab/EdgeNFT/internal/events"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/goman"
	"github.com/TeaOSLab/EdgeNFT/internal/remotelogs"
	"github.com/TeaOSLab/EdgeNFT/internal/rulesets"
	"github.com/fsnotify/fsnotify"
)

// 文件改变后等待的时间，编辑器通常会连续写入多次
const reloadDelay = 500 * time.Millisecond

// Node keep the kernel ruleset in sync with the ruleset file
type Node struct {
	applier *rulesets.Applier

	rulesetFile string
	reloadChan  chan struct{}

	locker       sync.Mutex
	lastErr      error
	countApplied int
}

func NewNode(conn *nftables.Conn, config *configs.NFTConfig) *Node {
	return &Node{
		applier:     rulesets.NewApplier(conn).SetMaxRetries(config.MaxRetries),
		rulesetFile: config.RulesetFile(),
		reloadChan:  make(chan struct{}, 1),
	}
}

// RulesetFile file being watched
func (this *Node) RulesetFile() string {
	return this.rulesetFile
}

// Reload read the ruleset file and apply it
func (this *Node) Reload(ctx context.Context) error {
	rulesetConfig, err := configs.LoadRulesetConfig(this.rulesetFile)
	if err == nil {
		_, err = this.applier.Apply(ctx, rulesetConfig)
	}

	this.locker.Lock()
	this.lastErr = err
	if err == nil {
		this.countApplied++
	}
	this.locker.Unlock()

	if err != nil {
		remotelogs.Error("NODE", "apply '"+this.rulesetFile+"' failed: "+err.Error())
		return err
	}

	events.Notify(events.EventApplied)
	return nil
}

// CountApplied times the ruleset was applied
func (this *Node) CountApplied() int {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.countApplied
}

// LastErr error of the last reload
func (this *Node) LastErr() error {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.lastErr
}

// NotifyReload ask the loop to reload, repeated requests are merged
func (this *Node) NotifyReload() {
	select {
	case this.reloadChan <- struct{}{}:
	default:
	}
}

// Start apply the ruleset and reload it whenever the file changes, until ctx is done
func (this *Node) Start(ctx context.Context) error {
	events.Notify(events.EventStart)

	err := this.Reload(ctx)
	if err != nil {
		return err
	}
	events.Notify(events.EventLoaded)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	// 监控目录而不是文件，编辑器保存时可能会替换文件
	err = watcher.Add(filepath.Dir(this.rulesetFile))
	if err != nil {
		return err
	}

	goman.New(func() {
		this.watch(ctx, watcher)
	})

	remotelogs.Println("NODE", "watching '"+this.rulesetFile+"'")

	for {
		select {
		case <-ctx.Done():
			events.Notify(events.EventQuit)
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-this.reloadChan:
			events.Notify(events.EventReload)
			_ = this.Reload(ctx)
		}
	}
}

func (this *Node) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	var name = filepath.Clean(this.rulesetFile)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, this.NotifyReload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			remotelogs.Warn("NODE", "watch failed: "+err.Error())
		}
	}
}

// ListenSignals SIGHUP reloads the ruleset, SIGINT and SIGTERM call cancel
func (this *Node) ListenSignals(cancel context.CancelFunc) {
	var signalChan = make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	goman.New(func() {
		for sig := range signalChan {
			if sig == syscall.SIGHUP {
				this.NotifyReload()
				continue
			}

			remotelogs.Println("NODE", "received signal '"+sig.String()+"', quit "+teaconst.ProcessName)
			signal.Stop(signalChan)
			events.Notify(events.EventTerminated)
			cancel()
			return
		}
	})
}
