// Package fitimport decodes FIT activity files into stored activities with streams.
package fitimport

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tormoder/fit"

	"trainload/internal/store"
)

// Source is the provenance recorded on imported activities
const Source = "fit"

// maxLocalOffset bounds the UTC offset derived from the activity message
const maxLocalOffset = 14 * time.Hour

var (
	ErrNotActivity = errors.New("FIT file is not an activity")
	ErrNoRecords   = errors.New("FIT activity has no timestamped records")
)

// ImportFile reads and decodes the FIT file at path
func ImportFile(path string) (*store.Activity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Decode(f, name)
}

// Decode converts a FIT activity into an Activity with Streams attached.
// The activity ID is derived from the file contents, so re-importing the same
// file updates the existing row. IDs are negative to stay clear of provider IDs.
func Decode(r io.Reader, name string) (*store.Activity, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read FIT file: %w", err)
	}

	decoded, err := fit.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}

	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotActivity, err)
	}

	records := sortedRecords(activity.Records)
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	streams := buildStreams(records)
	start := records[0].Timestamp

	var session *fit.SessionMsg
	if len(activity.Sessions) > 0 {
		session = activity.Sessions[0]
		if t := validTime(session.StartTime); !t.IsZero() {
			start = t
		}
	}

	a := &store.Activity{
		ID:             activityID(raw),
		Name:           name,
		Sport:          store.SportOther,
		Source:         Source,
		StartDate:      start.UTC(),
		StartDateLocal: localStart(activity.Activity, start),
		Streams:        streams,
		StreamsSynced:  true,
	}

	summarize(a, session, records, streams)
	if a.Name == "" {
		a.Name = fmt.Sprintf("%s %s", a.Sport, a.StartDateLocal.Format("2006-01-02"))
	}
	return a, nil
}

func sortedRecords(in []*fit.RecordMsg) []*fit.RecordMsg {
	out := make([]*fit.RecordMsg, 0, len(in))
	for _, rec := range in {
		if rec == nil || validTime(rec.Timestamp).IsZero() {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// buildStreams turns records into parallel arrays on an elapsed-seconds base.
// Invalid samples become 0; an array with no valid sample stays nil.
func buildStreams(records []*fit.RecordMsg) *store.Streams {
	n := len(records)
	start := records[0].Timestamp

	s := &store.Streams{Time: make([]int, n)}
	hr := make([]float64, n)
	speed := make([]float64, n)
	altitude := make([]float64, n)
	cadence := make([]float64, n)
	power := make([]float64, n)
	var haveHR, haveSpeed, haveAltitude, haveCadence, havePower bool

	for i, rec := range records {
		s.Time[i] = int(rec.Timestamp.Sub(start) / time.Second)

		if v, ok := heartRate(rec); ok {
			hr[i], haveHR = v, true
		}
		if v, ok := recordSpeed(rec); ok {
			speed[i], haveSpeed = v, true
		}
		if v, ok := recordAltitude(rec); ok {
			altitude[i], haveAltitude = v, true
		}
		if rec.Cadence != math.MaxUint8 {
			cadence[i], haveCadence = float64(rec.Cadence), true
		}
		if rec.Power != math.MaxUint16 {
			power[i], havePower = float64(rec.Power), true
		}
	}

	if haveHR {
		s.Heartrate = hr
	}
	if haveSpeed {
		s.Speed = speed
	}
	if haveAltitude {
		s.Altitude = altitude
	}
	if haveCadence {
		s.Cadence = cadence
	}
	if havePower {
		s.Power = power
	}
	return s
}

// summarize fills the activity averages from the session, falling back to the records
func summarize(a *store.Activity, session *fit.SessionMsg, records []*fit.RecordMsg, s *store.Streams) {
	elapsed := float64(s.Time[len(s.Time)-1])
	var distance float64
	for i := len(records) - 1; i >= 0; i-- {
		if d := positive(records[i].GetDistanceScaled()); d > 0 {
			distance = d
			break
		}
	}

	a.DurationMin = elapsed / 60
	a.Distance = distance
	a.AverageHeartrate = mean(s.Heartrate)
	a.AveragePower = mean(s.Power)
	if a.DurationMin > 0 {
		a.AverageSpeed = distance / elapsed
	}

	if session != nil {
		a.Sport = sportClass(session.Sport)
		if v := positive(session.GetTotalTimerTimeScaled()); v > 0 {
			a.DurationMin = v / 60
		}
		if v := positive(session.GetTotalDistanceScaled()); v > 0 {
			a.Distance = v
		}
		if session.AvgHeartRate != math.MaxUint8 && session.AvgHeartRate > 0 {
			a.AverageHeartrate = float64(session.AvgHeartRate)
		}
		if session.AvgPower != math.MaxUint16 && session.AvgPower > 0 {
			a.AveragePower = float64(session.AvgPower)
		}
		if v := positive(session.GetEnhancedAvgSpeedScaled()); v > 0 {
			a.AverageSpeed = v
		} else if v := positive(session.GetAvgSpeedScaled()); v > 0 {
			a.AverageSpeed = v
		} else if a.DurationMin > 0 && a.Distance > 0 {
			a.AverageSpeed = a.Distance / (a.DurationMin * 60)
		}
	}

	a.HasHeartrate = a.AverageHeartrate > 0
}

// localStart applies the offset between the activity's local and UTC timestamps
func localStart(msg *fit.ActivityMsg, start time.Time) time.Time {
	start = start.UTC()
	if msg == nil {
		return start
	}
	ts, local := validTime(msg.Timestamp), validTime(msg.LocalTimestamp)
	if ts.IsZero() || local.IsZero() {
		return start
	}
	offset := local.Sub(ts).Round(15 * time.Minute)
	if offset < -maxLocalOffset || offset > maxLocalOffset {
		return start
	}
	return start.Add(offset)
}

func sportClass(sport fit.Sport) store.Sport {
	switch sport {
	case fit.SportRunning:
		return store.SportRun
	case fit.SportCycling:
		return store.SportBike
	case fit.SportSwimming:
		return store.SportSwim
	case fit.SportWalking, fit.SportHiking:
		return store.SportWalk
	case fit.SportTraining:
		return store.SportStrength
	default:
		return store.SportOther
	}
}

func activityID(raw []byte) int64 {
	h := fnv.New64a()
	h.Write(raw)
	id := int64(h.Sum64() &^ (1 << 63))
	if id == 0 {
		id = 1
	}
	return -id
}

func heartRate(rec *fit.RecordMsg) (float64, bool) {
	if rec.HeartRate == math.MaxUint8 || rec.HeartRate == 0 {
		return 0, false
	}
	return float64(rec.HeartRate), true
}

func recordSpeed(rec *fit.RecordMsg) (float64, bool) {
	if v := rec.GetEnhancedSpeedScaled(); finite(v) && v >= 0 {
		return v, true
	}
	if v := rec.GetSpeedScaled(); finite(v) && v >= 0 {
		return v, true
	}
	return 0, false
}

func recordAltitude(rec *fit.RecordMsg) (float64, bool) {
	if v := rec.GetEnhancedAltitudeScaled(); finite(v) {
		return v, true
	}
	if v := rec.GetAltitudeScaled(); finite(v) {
		return v, true
	}
	return 0, false
}

func validTime(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

func mean(values []float64) float64 {
	var total float64
	var count int
	for _, v := range values {
		if v > 0 {
			total += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
