package whoop

import "time"

// SportJiuJitsu is the vendor's numeric sport identifier for Brazilian
// Jiu-Jitsu. The engine tracks exactly this sport; other activities stay in
// the cache but are never auto-created.
const SportJiuJitsu = 39

// scoreStateScored marks records whose Score block is populated. The vendor
// also emits "PENDING_SCORE" and "UNSCORABLE", both without usable metrics.
const scoreStateScored = "SCORED"

// WorkoutRecord is one workout as reported by the vendor.
//
// Field quirks are the vendor's, reproduced exactly: the energy field is
// "kilojoule" (singular) and zone durations carry a "_milli" suffix.
type WorkoutRecord struct {
	ID             int64         `json:"id"`
	UserID         int64         `json:"user_id"`
	SportID        int           `json:"sport_id"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	TimezoneOffset string        `json:"timezone_offset"`
	ScoreState     string        `json:"score_state"`
	Score          *WorkoutScore `json:"score"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Scored reports whether the workout carries usable metrics.
func (w *WorkoutRecord) Scored() bool {
	return w.ScoreState == scoreStateScored && w.Score != nil
}

// WorkoutScore holds the physiological metrics of a scored workout.
type WorkoutScore struct {
	Strain           float64       `json:"strain"`
	AverageHeartRate int           `json:"average_heart_rate"`
	MaxHeartRate     int           `json:"max_heart_rate"`
	Kilojoule        float64       `json:"kilojoule"`
	PercentRecorded  float64       `json:"percent_recorded"`
	ZoneDuration     *ZoneDuration `json:"zone_duration"`
}

// ZoneDuration is time spent per heart-rate zone, in milliseconds.
type ZoneDuration struct {
	ZoneZeroMilli  int64 `json:"zone_zero_milli"`
	ZoneOneMilli   int64 `json:"zone_one_milli"`
	ZoneTwoMilli   int64 `json:"zone_two_milli"`
	ZoneThreeMilli int64 `json:"zone_three_milli"`
	ZoneFourMilli  int64 `json:"zone_four_milli"`
	ZoneFiveMilli  int64 `json:"zone_five_milli"`
}

// RecoveryRecord is one day's recovery assessment.
type RecoveryRecord struct {
	CycleID    int64          `json:"cycle_id"`
	SleepID    int64          `json:"sleep_id"`
	UserID     int64          `json:"user_id"`
	ScoreState string         `json:"score_state"`
	Score      *RecoveryScore `json:"score"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RecoveryScore holds the recovery metrics.
type RecoveryScore struct {
	RecoveryScore    float64 `json:"recovery_score"`
	RestingHeartRate float64 `json:"resting_heart_rate"`
	HRVRmssdMilli    float64 `json:"hrv_rmssd_milli"`
	UserCalibrating  bool    `json:"user_calibrating"`
}

// SleepRecord is one sleep activity.
type SleepRecord struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	TimezoneOffset string      `json:"timezone_offset"`
	Nap            bool        `json:"nap"`
	ScoreState     string      `json:"score_state"`
	Score          *SleepScore `json:"score"`
}

// SleepScore holds sleep performance metrics.
type SleepScore struct {
	SleepPerformancePercentage float64 `json:"sleep_performance_percentage"`
	SleepEfficiencyPercentage  float64 `json:"sleep_efficiency_percentage"`
	RespiratoryRate            float64 `json:"respiratory_rate"`
}

// CycleRecord is one physiological day cycle.
type CycleRecord struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	Start          time.Time   `json:"start"`
	End            *time.Time  `json:"end"` // nil while the cycle is ongoing
	TimezoneOffset string      `json:"timezone_offset"`
	ScoreState     string      `json:"score_state"`
	Score          *CycleScore `json:"score"`
}

// CycleScore holds day-strain metrics.
type CycleScore struct {
	Strain           float64 `json:"strain"`
	Kilojoule        float64 `json:"kilojoule"`
	AverageHeartRate int     `json:"average_heart_rate"`
	MaxHeartRate     int     `json:"max_heart_rate"`
}

// ProfileRecord is the connected user's vendor profile.
type ProfileRecord struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// BodyMeasurementRecord is the user's most recent body measurement.
type BodyMeasurementRecord struct {
	HeightMeter    float64 `json:"height_meter"`
	WeightKilogram float64 `json:"weight_kilogram"`
	MaxHeartRate   int     `json:"max_heart_rate"`
}

// WorkoutPage is one page of workout records plus the cursor for the next
// page. An empty NextToken means the enumeration is complete.
type WorkoutPage struct {
	Records   []WorkoutRecord
	NextToken string
}

// RecoveryPage is one page of recovery records.
type RecoveryPage struct {
	Records   []RecoveryRecord
	NextToken string
}

// SleepPage is one page of sleep records.
type SleepPage struct {
	Records   []SleepRecord
	NextToken string
}

// CyclePage is one page of cycle records.
type CyclePage struct {
	Records   []CycleRecord
	NextToken string
}

// Token is the result of a code exchange or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}
