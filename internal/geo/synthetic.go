// Package geo produces the polygon-level intelligence overlay: deterministic
// synthetic summaries per H3 cell, weather series (synthetic or aggregated
// from the archive API), phase features for the yield model, and the
// enrichment orchestration that stitches them together.
package geo

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
)

// clock is swapped in tests so updatedAt stamps are deterministic.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Summary is the per-cell risk descriptor shown on the map overlay.
type Summary struct {
	CellID           string   `json:"cellId"`
	RiskIndex        float64  `json:"riskIndex"`
	MaxRisk          float64  `json:"maxRisk"`
	BalanceIndex     float64  `json:"balanceIndex"`
	PeakBalance      float64  `json:"peakBalance"`
	MaintenanceScore float64  `json:"maintenanceScore"`
	LeakProbability  float64  `json:"leakProbability"`
	FlowRate         float64  `json:"flowRate"`
	Pressure         float64  `json:"pressure"`
	SupplyRatio      float64  `json:"supplyRatio"`
	Dataset          string   `json:"dataset"`
	Status           string   `json:"status"`
	Advisories       []string `json:"advisories"`
	UpdatedAt        string   `json:"updatedAt"`
	DistrictKey      string   `json:"districtKey,omitempty"`
	DistrictLabel    string   `json:"districtLabel,omitempty"`
}

// SeasonStats aggregates one season window within one year.
type SeasonStats struct {
	Year               int     `json:"year"`
	AvgAirTemp         float64 `json:"avg_air_temp"`
	MaxAirTemp         float64 `json:"max_air_temp"`
	MinAirTemp         float64 `json:"min_air_temp"`
	AvgHumidity        float64 `json:"avg_humidity"`
	TotalPrecipitation float64 `json:"total_precipitation"`
	AvgCloudCover      float64 `json:"avg_cloud_cover"`
	AvgSoilTemp        float64 `json:"avg_soil_temp"`
	AvgSoilMoisture    float64 `json:"avg_soil_moisture"`
}

// WeatherSeries is a daily weather series plus seasonal roll-ups. The keys
// mirror the archive API variable names so the frontend renders synthetic
// and live data through the same code path.
type WeatherSeries struct {
	Time           []string                 `json:"time"`
	Temperature    []float64                `json:"temperature_2m"`
	Humidity       []float64                `json:"relative_humidity_2m"`
	Rain           []float64                `json:"rain"`
	CloudCover     []float64                `json:"cloud_cover_high"`
	SoilMoisture   []float64                `json:"soil_moisture_100_to_255cm"`
	SoilTemp       []float64                `json:"soil_temperature_100_to_255cm"`
	Seasonal       map[string][]SeasonStats `json:"seasonal"`
	AvgTemperature float64                  `json:"avgTemperature"`
	AvgCloudiness  float64                  `json:"avgCloudiness"`
	TotalRain      float64                  `json:"totalRain"`
}

// Empty reports whether the series carries no daily rows.
func (w WeatherSeries) Empty() bool {
	return len(w.Time) == 0
}

// YieldScore ranks one sampling node.
type YieldScore struct {
	Sample string  `json:"sample"`
	Yield  float64 `json:"yield"`
}

// Bundle is the full synthetic fallback for one cell.
type Bundle struct {
	Summary         Summary       `json:"summary"`
	Weather         WeatherSeries `json:"weather"`
	YieldPrediction []YieldScore  `json:"yieldPrediction"`
}

func statusFromRisk(riskIndex float64) string {
	switch {
	case riskIndex > 135:
		return "critical"
	case riskIndex >= 115:
		return "alert"
	case riskIndex >= 100:
		return "watch"
	default:
		return "stable"
	}
}

func advisories(status string) []string {
	switch status {
	case "critical":
		return []string{
			"Требуется срочное выездное обследование и согласование отключений.",
			"Отправьте аварийную бригаду и предупредите диспетчерскую смену.",
		}
	case "alert":
		return []string{
			"Сверьте последние замеры по ИТП и проверьте канал связи с ПТК.",
			"Подготовьте заявки на ограничение потребления по подъездам.",
		}
	case "watch":
		return []string{
			"Продолжайте наблюдение раз в шесть часов и фиксируйте тренд.",
		}
	default:
		return []string{"Нагрузка в норме — поддерживайте штатный контроль."}
	}
}

// GenerateSummary derives the synthetic cell descriptor. The draw order
// over the seeded stream is fixed: leak, flow, pressure, maintenance,
// supply, base risk, max risk. Reordering the draws changes every output.
func GenerateSummary(cellID string, year int) Summary {
	rng := domain.NewSyntheticRand(int64(domain.CellSeed(cellID, year)))

	leakProbability := clampF(12+rng.Uniform(0, 55), 7, 82)
	flowRate := round1(40 + rng.Uniform(0, 160))
	pressure := round2(4.1 + rng.Uniform(0, 1.6))
	maintenanceScore := round2(65 + rng.Uniform(0, 30))
	supplyRatio := round3(0.88 + rng.Uniform(0, 0.22))

	baseRisk := 92 + rng.Uniform(0, 42) + leakProbability*0.35
	maxRisk := baseRisk + rng.Uniform(0, 18)
	balanceIndex := clampF(100-(baseRisk-90)*0.35, 32, 100)
	peakBalance := clampF(100-(maxRisk-90)*0.4, 28, 100)

	status := statusFromRisk(baseRisk)
	district := DistrictFor(cellID)

	return Summary{
		CellID:           cellID,
		RiskIndex:        round2(baseRisk),
		MaxRisk:          round2(maxRisk),
		BalanceIndex:     round2(balanceIndex),
		PeakBalance:      round2(peakBalance),
		MaintenanceScore: maintenanceScore,
		LeakProbability:  round1(leakProbability),
		FlowRate:         flowRate,
		Pressure:         pressure,
		SupplyRatio:      supplyRatio,
		Dataset:          "synthetic",
		Status:           status,
		Advisories:       advisories(status),
		UpdatedAt:        Timestamp(),
		DistrictKey:      district.Key,
		DistrictLabel:    district.Label,
	}
}

// GenerateWeather builds an 84-day synthetic series starting May 1 of the
// given year. Per-day draws run in a fixed order over a dedicated stream so
// the series never perturbs the summary or yield draws.
func GenerateWeather(cellID string, year int) WeatherSeries {
	rng := domain.NewSyntheticRand(int64(domain.CellSeed(cellID, year) ^ domain.WeatherSeedMask))
	start := time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC)
	const days = 84

	series := WeatherSeries{
		Time:         make([]string, 0, days),
		Temperature:  make([]float64, 0, days),
		Humidity:     make([]float64, 0, days),
		Rain:         make([]float64, 0, days),
		CloudCover:   make([]float64, 0, days),
		SoilMoisture: make([]float64, 0, days),
		SoilTemp:     make([]float64, 0, days),
		Seasonal:     make(map[string][]SeasonStats),
	}

	dates := make([]time.Time, 0, days)
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		seasonalWave := math.Sin(float64(day) / days * math.Pi)
		secondaryWave := math.Sin(float64(day%30) / 30 * math.Pi * 2)

		temperature := 12 + seasonalWave*14 + secondaryWave*4 + rng.Uniform(-2, 2)
		humidity := 70 - seasonalWave*20 + rng.Uniform(-10, 10)
		cloud := 40 + seasonalWave*30 + rng.Uniform(-20, 20)
		soilTemp := 6 + seasonalWave*9 + rng.Uniform(-1.5, 1.5)
		soilMoisture := 55 + seasonalWave*15 + rng.Uniform(-15, 15)
		rainChance := rng.Normalised()
		rain := 0.0
		if rainChance > 0.82 {
			rain = rng.Uniform(0.5, 8.0)
		} else if rainChance > 0.70 {
			rain = rng.Uniform(0.1, 3.2)
		}

		dates = append(dates, date)
		series.Time = append(series.Time, date.Format("2006-01-02T15:04:05"))
		series.Temperature = append(series.Temperature, round2(temperature))
		series.Humidity = append(series.Humidity, round2(clampF(humidity, 20, 99)))
		series.Rain = append(series.Rain, round2(rain))
		series.CloudCover = append(series.CloudCover, round2(clampF(cloud, 5, 100)))
		series.SoilMoisture = append(series.SoilMoisture, round2(clampF(soilMoisture, 20, 95)))
		series.SoilTemp = append(series.SoilTemp, round2(soilTemp))
	}

	for _, window := range SeasonWindows {
		stats, ok := seasonStats(window, year, dates, series)
		if ok {
			series.Seasonal[window.Name] = []SeasonStats{stats}
		}
	}

	series.AvgTemperature = round2(meanOf(series.Temperature))
	series.AvgCloudiness = round2(meanOf(series.CloudCover))
	series.TotalRain = round2(sumOf(series.Rain))
	return series
}

// GenerateYield produces the 12-node synthetic ranking, sorted descending.
func GenerateYield(cellID string, year int) []YieldScore {
	rng := domain.NewSyntheticRand(int64(domain.CellSeed(cellID, year) ^ domain.YieldSeedMask))
	items := make([]YieldScore, 0, 12)
	for i := 0; i < 12; i++ {
		node := 100 + int(rng.Uniform(0, 800))
		items = append(items, YieldScore{
			Sample: fmt.Sprintf("PS%06d", node),
			Yield:  round2(90 + rng.Uniform(0, 45)),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Yield > items[j].Yield })
	return items
}

// GenerateBundle is the full per-cell fallback: summary, weather, yield.
func GenerateBundle(cellID string, year int) Bundle {
	return Bundle{
		Summary:         GenerateSummary(cellID, year),
		Weather:         GenerateWeather(cellID, year),
		YieldPrediction: GenerateYield(cellID, year),
	}
}

// Timestamp formats the current clock time the way all overlay payloads
// stamp updatedAt.
func Timestamp() string {
	return clock.Now().UTC().Format("2006-01-02T15:04:05") + "Z"
}

func seasonStats(window Window, year int, dates []time.Time, s WeatherSeries) (SeasonStats, bool) {
	stats := SeasonStats{Year: year, MinAirTemp: math.Inf(1), MaxAirTemp: math.Inf(-1)}
	count := 0
	var tempSum, humSum, cloudSum, soilTempSum, soilMoistSum float64
	for i, date := range dates {
		if !window.Contains(date.Format("01-02")) {
			continue
		}
		count++
		temp := s.Temperature[i]
		tempSum += temp
		if temp > stats.MaxAirTemp {
			stats.MaxAirTemp = temp
		}
		if temp < stats.MinAirTemp {
			stats.MinAirTemp = temp
		}
		humSum += s.Humidity[i]
		stats.TotalPrecipitation += s.Rain[i]
		cloudSum += s.CloudCover[i]
		soilTempSum += s.SoilTemp[i]
		soilMoistSum += s.SoilMoisture[i]
	}
	if count == 0 {
		return SeasonStats{}, false
	}
	n := float64(count)
	stats.AvgAirTemp = round2(tempSum / n)
	stats.MaxAirTemp = round2(stats.MaxAirTemp)
	stats.MinAirTemp = round2(stats.MinAirTemp)
	stats.AvgHumidity = round2(humSum / n)
	stats.TotalPrecipitation = round2(stats.TotalPrecipitation)
	stats.AvgCloudCover = round2(cloudSum / n)
	stats.AvgSoilTemp = round2(soilTempSum / n)
	stats.AvgSoilMoisture = round2(soilMoistSum / n)
	return stats, true
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sumOf(values) / float64(len(values))
}

func sumOf(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
