package logger

import (
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志输出配置
type Options struct {
	Level      string // debug / info / warn / error，空值按运行模式推断
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// L 全局日志；Init 之前为 nil，此时 Z/S 返回控制台兜底实例
var L *zap.Logger

var (
	fallbackOnce sync.Once
	fallback     *zap.Logger
)

// Init 初始化全局日志并替换 zap 全局实例
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

// New debug 模式输出彩色控制台；其它模式写 JSON 到滚动文件，文件不可写时退回 stdout
func New(mode string, options Options) *zap.Logger {
	debug := strings.EqualFold(strings.TrimSpace(mode), "debug")
	level := resolveLevel(options.Level, debug)
	if debug {
		enc := encoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return newLogger(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), level)
	}

	sink, err := openRotatingFile(options)
	if err != nil {
		log.Printf("logger: %v, writing to stdout", err)
		sink = zapcore.Lock(os.Stdout)
	}
	return newLogger(zapcore.NewJSONEncoder(encoderConfig()), sink, level)
}

func newLogger(enc zapcore.Encoder, sink zapcore.WriteSyncer, level zap.AtomicLevel) *zap.Logger {
	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.DPanicLevel))
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	return enc
}

// resolveLevel 非法级别按运行模式兜底
func resolveLevel(raw string, debug bool) zap.AtomicLevel {
	if lvl, err := zapcore.ParseLevel(strings.TrimSpace(raw)); err == nil && strings.TrimSpace(raw) != "" {
		return zap.NewAtomicLevelAt(lvl)
	}
	if debug {
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zap.InfoLevel)
}

// Z 当前可用的 *zap.Logger
func Z() *zap.Logger {
	if L != nil {
		return L
	}
	fallbackOnce.Do(func() {
		fallback = newLogger(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(zap.InfoLevel))
	})
	return fallback
}

func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// StdLogger 适配只接受 *log.Logger 的组件（http.Server.ErrorLog 等）
func StdLogger() *log.Logger {
	return zap.NewStdLog(Z())
}

// wrapped 供包级 Debugw/Infow 等使用，跳过一层调用栈使 caller 指向业务代码
func wrapped() *zap.SugaredLogger {
	return Z().WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func Debugw(message string, kv ...interface{}) { wrapped().Debugw(message, kv...) }

func Infow(message string, kv ...interface{}) { wrapped().Infow(message, kv...) }

func Warnw(message string, kv ...interface{}) { wrapped().Warnw(message, kv...) }

func Errorw(message string, kv ...interface{}) { wrapped().Errorw(message, kv...) }
