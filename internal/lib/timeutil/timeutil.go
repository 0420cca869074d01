// Package timeutil содержит календарные вычисления для планировщика подписок.
package timeutil

import "time"

// DayWindow возвращает границы календарного дня [start, end) в UTC,
// в который попадает момент t. Используется для выборки подписок,
// истекающих ровно через заданное число дней.
func DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// LeadWindow возвращает границы календарного дня, отстоящего от now
// на lead дней вперёд.
func LeadWindow(now time.Time, lead int) (time.Time, time.Time) {
	return DayWindow(now.AddDate(0, 0, lead))
}
