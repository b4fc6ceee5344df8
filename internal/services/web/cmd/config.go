package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GRPCPort    string // empty disables the health server
	TimeoutMs   int
	MaxUploadMB int
	RateRPS     float64
	RateBurst   int
	CORSOrigins []string

	CBFails      int
	CBOpenMs     int
	CBIntervalMs int

	OWMKey string
	OWMURL string

	CropModelURL     string
	CropModelName    string
	DiseaseModelURL  string
	DiseaseModelName string
	ModelReadyMs     int

	FertilizerCSV string
	TTSURL        string
	TTSLang       string
	StaticDir     string
	AudioTTLMin   int

	MongoURI        string
	MongoDB         string
	MongoCollection string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	RabbitHost     string
	RabbitPort     int
	RabbitUser     string
	RabbitPassword string
	RabbitClientID string
	EventTopicTmpl string
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: %s=%q is not an integer, using %d", k, v, d)
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("config: %s=%q is not a number, using %v", k, v, d)
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadConfig reads .env when present, then the environment.
func loadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	grpcPort := "50051"
	if v, set := os.LookupEnv("GRPC_PORT"); set {
		grpcPort = strings.TrimSpace(v)
	}

	return Config{
		Port:        getenv("PORT", "5000"),
		GRPCPort:    grpcPort,
		TimeoutMs:   getenvInt("TIMEOUT_MS", 5000),
		MaxUploadMB: getenvInt("MAX_UPLOAD_MB", 10),
		RateRPS:     getenvFloat("RATE_LIMIT_RPS", 10),
		RateBurst:   getenvInt("RATE_LIMIT_BURST", 20),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "*")),

		CBFails:      getenvInt("CB_FAILS", 5),
		CBOpenMs:     getenvInt("CB_OPEN_MS", 10000),
		CBIntervalMs: getenvInt("CB_INTERVAL_MS", 60000),

		OWMKey: os.Getenv("OWM_API_KEY"),
		OWMURL: getenv("OWM_URL", "http://api.openweathermap.org/data/2.5/weather"),

		CropModelURL:     getenv("CROP_MODEL_URL", "http://localhost:8501"),
		CropModelName:    getenv("CROP_MODEL_NAME", "crop-recommender"),
		DiseaseModelURL:  getenv("DISEASE_MODEL_URL", "http://localhost:8502"),
		DiseaseModelName: getenv("DISEASE_MODEL_NAME", "plant-disease"),
		ModelReadyMs:     getenvInt("MODEL_READY_TIMEOUT_MS", 30000),

		FertilizerCSV: getenv("FERTILIZER_CSV", ""),
		TTSURL:        getenv("TTS_URL", "https://translate.google.com/translate_tts"),
		TTSLang:       getenv("TTS_LANG", "hi"),
		StaticDir:     getenv("STATIC_DIR", "./static"),
		AudioTTLMin:   getenvInt("AUDIO_TTL_MIN", 60),

		MongoURI:        getenv("MONGO_URI", ""),
		MongoDB:         getenv("MONGO_DB", "harvestify"),
		MongoCollection: getenv("MONGO_COLLECTION", "articles"),

		InfluxURL:    getenv("INFLUX_URL", ""),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    getenv("INFLUX_ORG", "harvestify"),
		InfluxBucket: getenv("INFLUX_BUCKET", "predictions"),

		RabbitHost:     getenv("RABBITMQ_HOST", ""),
		RabbitPort:     getenvInt("RABBITMQ_PORT", 1883),
		RabbitUser:     getenv("RABBITMQ_USER", ""),
		RabbitPassword: getenv("RABBITMQ_PASSWORD", ""),
		RabbitClientID: getenv("HOSTNAME", "harvestify-web"),
		EventTopicTmpl: getenv("EVENT_TOPIC_TMPL", "event/prediction/{kind}"),
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
