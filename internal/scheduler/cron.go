package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер 5-польных cron-выражений (минута час день месяц день-недели).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// jobParser — парсер для регистрации задач: 5 полей плюс дескрипторы
// ("@every 5m" для интервалов test mode).
var jobParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCron, cronExpr, err)
	}
	return nil
}

// intervalSpecs — закрытое перечисление интервалов test mode.
// Ключи фиксированы; произвольные выражения в test mode не принимаются.
var intervalSpecs = map[string]string{
	"1min":  "@every 1m",
	"5min":  "@every 5m",
	"10min": "@every 10m",
	"15min": "@every 15m",
	"30min": "@every 30m",
	"1hour": "@every 1h",
	"1day":  "@every 24h",
}

// intervalDurations — то же перечисление как wall-clock длительности
// (для параметра duration).
var intervalDurations = map[string]time.Duration{
	"1min":  time.Minute,
	"5min":  5 * time.Minute,
	"10min": 10 * time.Minute,
	"15min": 15 * time.Minute,
	"30min": 30 * time.Minute,
	"1hour": time.Hour,
	"1day":  24 * time.Hour,
}

// IntervalSpec переводит интервал test mode в cron-спецификацию.
func IntervalSpec(interval string) (string, error) {
	spec, ok := intervalSpecs[interval]
	if !ok {
		return "", fmt.Errorf("%w: interval %q", ErrUnknownInterval, interval)
	}
	return spec, nil
}

// IntervalDuration переводит длительность test mode в time.Duration.
func IntervalDuration(duration string) (time.Duration, error) {
	d, ok := intervalDurations[duration]
	if !ok {
		return 0, fmt.Errorf("%w: duration %q", ErrUnknownInterval, duration)
	}
	return d, nil
}
