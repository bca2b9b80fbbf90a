package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers every key so env overrides resolve without a config file.
// Map keys are lowercased by viper; consumers normalise them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "studiodesk")
	v.SetDefault("APP_VERSION", "dev")

	v.SetDefault("TLS.ENABLE", false)
	v.SetDefault("TLS.CERT_PATH", "")
	v.SetDefault("TLS.KEY_PATH", "")

	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "127.0.0.1")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.DBNAME", "studiodesk")
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.SLOW_QUERY_THRESHOLD", 200*time.Millisecond)
	v.SetDefault("DATABASE.CONNECT_RETRIES", 5)
	v.SetDefault("DATABASE.CONNECT_BACKOFF", 3*time.Second)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME", 10*time.Minute)

	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 5*time.Second)

	v.SetDefault("WORK_CALENDAR.TIMEZONE", "UTC")
	v.SetDefault("WORK_CALENDAR.WORK_DAYS", []string{"MON", "TUE", "WED", "THU", "FRI"})
	v.SetDefault("WORK_CALENDAR.DAY_START", "09:00")
	v.SetDefault("WORK_CALENDAR.DAY_END", "18:00")
	// Monday planning meeting.
	v.SetDefault("WORK_CALENDAR.FREEZE.START_DAY", "MON")
	v.SetDefault("WORK_CALENDAR.FREEZE.START_TIME", "09:00")
	v.SetDefault("WORK_CALENDAR.FREEZE.END_DAY", "MON")
	v.SetDefault("WORK_CALENDAR.FREEZE.END_TIME", "12:00")
	// Sunday R&D.
	v.SetDefault("WORK_CALENDAR.BOOST.START_DAY", "SUN")
	v.SetDefault("WORK_CALENDAR.BOOST.START_TIME", "00:00")
	v.SetDefault("WORK_CALENDAR.BOOST.END_DAY", "SUN")
	v.SetDefault("WORK_CALENDAR.BOOST.END_TIME", "20:00")

	v.SetDefault("SCORING.TYPE_WEIGHTS", map[string]float64{
		"CLIENT":   40,
		"INTERNAL": 25,
		"RESEARCH": 20,
		"ADMIN":    15,
	})
	v.SetDefault("SCORING.PRIORITY_FACTORS", map[string]float64{
		"URGENT_IMPORTANT":         2.0,
		"IMPORTANT_NOT_URGENT":     1.5,
		"URGENT_NOT_IMPORTANT":     1.2,
		"NOT_URGENT_NOT_IMPORTANT": 1.0,
	})
	v.SetDefault("SCORING.USER_PRIORITY", map[string]float64{
		"URGENT_IMPORTANT":         30,
		"IMPORTANT_NOT_URGENT":     20,
		"URGENT_NOT_IMPORTANT":     15,
		"NOT_URGENT_NOT_IMPORTANT": 5,
	})
	v.SetDefault("SCORING.AGING_SCALE", 10.0)
	v.SetDefault("SCORING.URGENCY_SCALE", 24.0)
	v.SetDefault("SCORING.URGENCY_HORIZON", 4.0)
	v.SetDefault("SCORING.OVERDUE_STEP", 1.0)
	v.SetDefault("SCORING.OVERDUE_PER_HOUR", 0.25)
	v.SetDefault("SCORING.IN_REVIEW_BOOST", 50.0)
	v.SetDefault("SCORING.EMERGENCY_BOOST", 500.0)
	v.SetDefault("SCORING.BOOST_WINDOW_BONUS", 40.0)
	v.SetDefault("SCORING.BOOST_QUALIFIER", `task.type == "RESEARCH"`)
	v.SetDefault("SCORING.CAPACITY_PENALTY", 30.0)
	v.SetDefault("SCORING.DISPLAY_FLOOR", 0.0)
	// 0 disables the upper clamp.
	v.SetDefault("SCORING.DISPLAY_CEILING", 0.0)

	v.SetDefault("HEALTH.ON_TIME_WEIGHT", 0.40)
	v.SetDefault("HEALTH.OVERDUE_WEIGHT", 0.25)
	v.SetDefault("HEALTH.WORKLOAD_WEIGHT", 0.15)
	v.SetDefault("HEALTH.BUDGET_WEIGHT", 0.20)
	v.SetDefault("HEALTH.OVERDUE_PENALTY", 15.0)
	v.SetDefault("HEALTH.SWEEP_CONCURRENCY", 4)

	v.SetDefault("SCHEDULER.SECRET", "")
	v.SetDefault("SCHEDULER.RECALCULATE_SPEC", "*/15 * * * *")
	v.SetDefault("SCHEDULER.HEALTH_SWEEP_SPEC", "0 * * * *")

	v.SetDefault("GOOGLE_CALENDAR.ENABLE", false)
	v.SetDefault("GOOGLE_CALENDAR.CREDENTIALS_FILE", "credentials.json")
	v.SetDefault("GOOGLE_CALENDAR.CALENDAR_ID", "primary")

	v.SetDefault("OTEL.PROTOCOL", "grpc")
	v.SetDefault("OTEL.INSECURE", true)
	v.SetDefault("OTEL.SAMPLE_RATIO", 0.2)

	v.SetDefault("PYROSCOPE.ADDR", "")
	v.SetDefault("CONSUL.SERVICE_HOST", "")

	v.SetDefault("FLAGSMITH.ADDR", "")
	v.SetDefault("FLAGSMITH.API_KEY", "")
}
