package weather

// Aggregate computes the requested maxima over doc's hourly series.
// A metric is only inspected when its flag is set.
func Aggregate(req ForecastRequest, doc *Document, date Date) Summary {
	summary := Summary{Date: date}

	var hourly *Hourly
	if doc != nil {
		hourly = doc.Hourly
	}
	if hourly == nil {
		return summary
	}

	if req.IncludeTemperature {
		summary.MaxTemperature = maxOf(hourly.Temperature2m)
	}
	if req.IncludeHumidity {
		summary.MaxHumidity = maxOf(hourly.RelativeHumidity2m)
	}
	if req.IncludeWindSpeed {
		summary.MaxWindSpeed = maxOf(hourly.WindSpeed10m)
	}

	return summary
}

// maxOf returns the largest non-nil element widened to float64, or nil when
// the series has no values.
func maxOf[T ~int | ~float64](series []*T) *float64 {
	var (
		best  float64
		found bool
	)
	for _, v := range series {
		if v == nil {
			continue
		}
		f := float64(*v)
		if !found || f > best {
			best = f
			found = true
		}
	}
	if !found {
		return nil
	}
	return &best
}
