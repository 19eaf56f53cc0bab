package log4gox

import (
	"fmt"
	"io"
	"os"

	l4g "github.com/alecthomas/log4go"
)

var stdout io.Writer = os.Stdout

// 终端前景色 30黑 31红 32绿 33黄 34蓝 35紫 36青 37白
var (
	levelColor   = [...]int{30, 30, 32, 37, 37, 33, 31, 34}
	levelStrings = [...]string{"FNST", "FINE", "DEBG", "TRAC", "INFO", "WARN", "EROR", "CRIT"}
)

const colorSymbol = 0x1B

// ConsoleLogWriter 按日志级别着色的控制台输出
type ConsoleLogWriter chan *l4g.LogRecord

// NewColorConsoleLogWriter 构造
func NewColorConsoleLogWriter() ConsoleLogWriter {
	records := make(ConsoleLogWriter, l4g.LogBufferLength)
	go records.run(stdout)
	return records
}

func (w ConsoleLogWriter) run(out io.Writer) {
	for rec := range w {
		fmt.Fprintf(out, "%c[%dm[%s] [%s] (%s) %s\n%c[0m",
			colorSymbol,
			levelColor[rec.Level],
			rec.Created.Format("01/02/06 15:04:05"),
			levelStrings[rec.Level],
			rec.Source,
			rec.Message,
			colorSymbol)
	}
}

// LogWrite 缓冲满的时候会阻塞
func (w ConsoleLogWriter) LogWrite(rec *l4g.LogRecord) {
	w <- rec
}

// Close 关掉之后不能再写
func (w ConsoleLogWriter) Close() {
	close(w)
}
