// Package clock implements the pure effective-trading-day rule (spec
// §4.1): never treat today's session as complete before the market
// close hour, so an intraday run never ingests a partial bar.
package clock

import "time"

// EffectiveEnd returns the latest trading day that may safely be treated
// as closed. If target is today in loc and now hasn't reached closeHour
// yet, it returns target minus one day; otherwise it returns target
// unchanged. Weekends and holidays are not special-cased here — the
// market data provider simply returns nothing for them and the caller's
// watermark doesn't advance (spec §4.1).
func EffectiveEnd(now, target time.Time, loc *time.Location, closeHour int) time.Time {
	nowLocal := now.In(loc)
	targetLocal := target.In(loc)
	today := dateOnly(nowLocal)
	targetDate := dateOnly(targetLocal)

	if targetDate.Equal(today) && nowLocal.Hour() < closeHour {
		return today.AddDate(0, 0, -1)
	}
	return targetDate
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
