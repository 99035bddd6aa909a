package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	red         = 31
	green       = 32
	yellow      = 33
	blue        = 36
	gray        = 37
	lightGreen  = 92
	lightYellow = 93
	cyan        = 96
)

// Formatter renders one line per entry: level, ts, sorted fields, msg.
type Formatter struct {
	Colors bool
}

func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	var b strings.Builder

	f.write(&b, "level", strings.ToUpper(entry.Level.String())[:4], levelColor(entry.Level))
	f.write(&b, "ts", entry.Time.Format("2006-01-02 15:04:05.000"), lightYellow)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := stringify(entry.Data[k])
		if s == "" {
			continue
		}
		valueColor := cyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = green
		} else if strings.HasPrefix(s, "\"") {
			valueColor = lightYellow
		}
		f.write(&b, k, s, valueColor)
	}
	f.write(&b, "msg", strconv.Quote(entry.Message), lightGreen)

	output := strings.ReplaceAll(b.String(), "\r", "\\r")
	output = strings.ReplaceAll(output, "\n", "\\n") + "\n"
	return []byte(output), nil
}

func (f *Formatter) write(b *strings.Builder, key, value string, color int) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	if !f.Colors {
		b.WriteString(key + "=" + value)
		return
	}
	fmt.Fprintf(b, "\x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m", cyan, key, color, value)
}

func levelColor(level log.Level) int {
	switch level {
	case log.DebugLevel, log.TraceLevel:
		return gray
	case log.WarnLevel:
		return yellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		return red
	default:
		return blue
	}
}

func stringify(val any) string {
	if err, ok := val.(error); ok {
		return strconv.Quote(err.Error())
	}
	m, err := json.Marshal(val)
	if err != nil {
		return ""
	}
	return string(m)
}
