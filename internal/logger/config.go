// internal/logger/config.go
package logger

type Config struct {
	Level       string // debug, info, warn, error
	File        string // пустая строка: только консоль
	MaxSize     int    // мегабайты
	MaxAge      int    // дни
	MaxBackups  int
	Compress    bool
	Development bool
	Pretty      bool // цветная компактная консоль
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       "pumpbundle.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}
