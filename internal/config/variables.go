package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Nightscout
	BaseURL        string // normalized with trailing slash
	BatchSize      int
	MaxRecords     int // 0 = unlimited
	HTTPTimeoutSec int

	// Archive output
	OutputDir          string
	UnderscoreNames    bool   // replace whitespace in treatment file names
	ArchiveFormat      string // "csv" or "parquet"
	CSVDelimiter       byte
	CSVQuote           byte
	CSVEscape          byte
	ParquetCompression string // SNAPPY, ZSTD, GZIP

	// S3 (opcional — habilitado quando S3_ENDPOINT está definido)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseTLS    bool
	S3Bucket    string
	S3BasePath  string

	// Kafka relay (opcional — habilitado quando KAFKA_BROKERS está definido)
	KafkaBrokers []string
	KafkaTopic   string

	// InfluxDB (opcional — habilitado quando INFLUX_URL está definido)
	InfluxURL         string
	InfluxToken       string
	InfluxOrg         string
	InfluxBucket      string
	InfluxMeasurement string
}

func (c *Config) S3Enabled() bool     { return c.S3Endpoint != "" }
func (c *Config) KafkaEnabled() bool  { return len(c.KafkaBrokers) > 0 }
func (c *Config) InfluxEnabled() bool { return c.InfluxURL != "" }

func (c *Config) String() string {
	return fmt.Sprintf(`
Nightscout:
  BaseURL:        %s
  BatchSize:      %d
  MaxRecords:     %d
  HTTPTimeoutSec: %d

Archive:
  OutputDir:          %s
  UnderscoreNames:    %t
  Format:             %s
  CSVDelimiter:       %q
  CSVQuote:           %q
  CSVEscape:          %q
  ParquetCompression: %s

S3:
  Enabled:   %t
  Endpoint:  %s
  AccessKey: %s
  SecretKey: %s
  UseTLS:    %t
  Bucket:    %s
  BasePath:  %s

Kafka:
  Enabled: %t
  Brokers: %v
  Topic:   %s

Influx:
  Enabled:     %t
  URL:         %s
  Token:       %s
  Org:         %s
  Bucket:      %s
  Measurement: %s
`,
		c.BaseURL, c.BatchSize, c.MaxRecords, c.HTTPTimeoutSec,
		c.OutputDir, c.UnderscoreNames, c.ArchiveFormat,
		c.CSVDelimiter, c.CSVQuote, c.CSVEscape, c.ParquetCompression,
		c.S3Enabled(), c.S3Endpoint, c.S3AccessKey, strings.Repeat("*", len(c.S3SecretKey)), c.S3UseTLS, c.S3Bucket, c.S3BasePath,
		c.KafkaEnabled(), c.KafkaBrokers, c.KafkaTopic,
		c.InfluxEnabled(), c.InfluxURL, strings.Repeat("*", len(c.InfluxToken)), c.InfluxOrg, c.InfluxBucket, c.InfluxMeasurement,
	)
}

type errList []string

func (e *errList) addf(format string, a ...any) { *e = append(*e, fmt.Sprintf(format, a...)) }
func (e *errList) add(msg string)               { *e = append(*e, msg) }
func (e *errList) has() bool                    { return len(*e) > 0 }

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int, errs *errList) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		errs.addf("%s inválido (esperado int): %q", key, v)
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool, errs *errList) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	default:
		errs.addf("%s inválido (use true/false ou 1/0): %q", key, v)
		return fallback
	}
}

func getenvChar(key string, fallback byte, errs *errList) byte {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if len(v) != 1 {
		errs.addf("%s inválido (esperado um único caractere): %q", key, v)
		return fallback
	}
	return v[0]
}

func getRequired(key string, errs *errList) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		errs.addf("faltando %s", key)
	}
	return v
}

func ensureOneOf(key, val string, allowed []string, errs *errList) {
	for _, a := range allowed {
		if val == a {
			return
		}
	}
	errs.addf("%s inválido (permitidos: %s): %q", key, strings.Join(allowed, ", "), val)
}

func parseBrokers(list string, errs *errList) []string {
	var out []string
	if list == "" {
		return out
	}
	for _, b := range strings.Split(list, ",") {
		if s := strings.TrimSpace(b); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		errs.add("KAFKA_BROKERS inválido (lista vazia)")
	}
	return out
}

func LoadConfig() (*Config, error) {
	var errs errList

	cfg := &Config{
		BaseURL:        getRequired("NS_BASE_URL", &errs),
		BatchSize:      getenvInt("NS_BATCH_SIZE", 2000, &errs),
		MaxRecords:     getenvInt("NS_MAX_RECORDS", 0, &errs),
		HTTPTimeoutSec: getenvInt("NS_HTTP_TIMEOUT_SEC", 30, &errs),

		OutputDir:          getenv("NS_OUTPUT_DIR", "."),
		UnderscoreNames:    getenvBool("NS_UNDERSCORE_NAMES", false, &errs),
		ArchiveFormat:      getenv("NS_ARCHIVE_FORMAT", "csv"),
		CSVDelimiter:       getenvChar("NS_CSV_DELIMITER", ',', &errs),
		CSVQuote:           getenvChar("NS_CSV_QUOTE", '\'', &errs),
		CSVEscape:          getenvChar("NS_CSV_ESCAPE", '\\', &errs),
		ParquetCompression: getenv("NS_PARQUET_COMPRESSION", "SNAPPY"),

		S3Endpoint: os.Getenv("S3_ENDPOINT"),
		S3UseTLS:   getenvBool("S3_USE_TLS", false, &errs),
		S3BasePath: getenv("S3_BASE_PATH", "nightscout"),

		InfluxURL:         os.Getenv("INFLUX_URL"),
		InfluxMeasurement: getenv("INFLUX_MEASUREMENT", "entries"),
	}

	if cfg.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	}
	if cfg.BatchSize <= 0 {
		errs.add("NS_BATCH_SIZE deve ser > 0")
	}
	if cfg.MaxRecords < 0 {
		errs.add("NS_MAX_RECORDS deve ser >= 0")
	}
	if cfg.HTTPTimeoutSec <= 0 {
		errs.add("NS_HTTP_TIMEOUT_SEC deve ser > 0")
	}
	ensureOneOf("NS_ARCHIVE_FORMAT", cfg.ArchiveFormat, []string{"csv", "parquet"}, &errs)
	ensureOneOf("NS_PARQUET_COMPRESSION", cfg.ParquetCompression, []string{"SNAPPY", "ZSTD", "GZIP"}, &errs)
	if cfg.CSVQuote == '"' {
		errs.add("NS_CSV_QUOTE não pode ser aspas duplas — corromperia JSON embutido nas células")
	}

	if cfg.S3Enabled() {
		cfg.S3AccessKey = getRequired("S3_ACCESS_KEY", &errs)
		cfg.S3SecretKey = getRequired("S3_SECRET_KEY", &errs)
		cfg.S3Bucket = getRequired("S3_BUCKET", &errs)
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = parseBrokers(brokers, &errs)
		cfg.KafkaTopic = getRequired("KAFKA_TOPIC", &errs)
	}

	if cfg.InfluxEnabled() {
		cfg.InfluxToken = getRequired("INFLUX_TOKEN", &errs)
		cfg.InfluxOrg = getRequired("INFLUX_ORG", &errs)
		cfg.InfluxBucket = getRequired("INFLUX_BUCKET", &errs)
	}

	if errs.has() {
		logger := GetLogger()
		for _, e := range errs {
			logger.Printf("[config] %s", e)
		}
		return nil, errors.New("variáveis de ambiente faltando/invalidas — ver logs acima")
	}
	return cfg, nil
}
