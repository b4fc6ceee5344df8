package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/services/community"
	"github.com/LeonardoBeccarini/harvestify/internal/services/crop"
	"github.com/LeonardoBeccarini/harvestify/internal/services/disease"
	"github.com/LeonardoBeccarini/harvestify/internal/services/event"
	"github.com/LeonardoBeccarini/harvestify/internal/services/fertilizer"
	"github.com/LeonardoBeccarini/harvestify/internal/services/weather"
	"github.com/LeonardoBeccarini/harvestify/internal/services/web"
	"github.com/LeonardoBeccarini/harvestify/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/harvestify/pkg/upstream"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type waiter interface {
	Name() string
	WaitReady(ctx context.Context) error
}

func main() {
	cfg := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := web.NewMetrics()
	upOpts := func(accept string) upstream.Options {
		return upstream.Options{
			Timeout:       ms(cfg.TimeoutMs),
			Failures:      cfg.CBFails,
			OpenFor:       ms(cfg.CBOpenMs),
			Interval:      ms(cfg.CBIntervalMs),
			Accept:        accept,
			OnStateChange: metrics.BreakerStateChange,
		}
	}

	// === Upstreams ===
	if cfg.OWMKey == "" {
		log.Printf("web: OWM_API_KEY is not set, crop recommendations will show the try-again page")
	}
	weatherClient := weather.NewOWMClient(cfg.OWMKey, upstream.New("weather", cfg.OWMURL, upOpts("")))
	cropModel := crop.NewRemotePredictor(cfg.CropModelName, upstream.New("crop-model", cfg.CropModelURL, upOpts("")))
	diseaseModel := disease.NewRemotePredictor(cfg.DiseaseModelName, upstream.New("disease-model", cfg.DiseaseModelURL, upOpts("")), nil)

	// === Fertilizer ===
	table, err := fertilizer.LoadTableFile(cfg.FertilizerCSV)
	if err != nil {
		log.Fatalf("fertilizer table: %v", err)
	}
	catalogue, err := fertilizer.DefaultCatalogue()
	if err != nil {
		log.Fatalf("advisory catalogue: %v", err)
	}
	tts := fertilizer.NewGoogleTTS(upstream.New("tts", cfg.TTSURL, upOpts("audio/mpeg")))
	narrator := fertilizer.NewNarrator(tts, cfg.TTSLang, cfg.StaticDir, time.Duration(cfg.AudioTTLMin)*time.Minute)
	advisor := fertilizer.NewAdvisor(table, catalogue, narrator)
	log.Printf("web: fertilizer table has %d crops", table.Len())

	// === Community store ===
	var store community.Store = community.NewMemoryStore()
	var mongoStore *community.MongoStore
	if cfg.MongoURI != "" {
		mongoStore, err = community.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoCollection)
		if err != nil {
			log.Fatalf("community store: %v", err)
		}
		store = mongoStore
	}

	// === Event sinks ===
	var (
		sinks  []event.Sink
		writer *event.Writer
		mqttSk *event.MQTTSink
		influx influxdb2.Client
		recent http.Handler
	)
	if cfg.InfluxURL != "" {
		influx = influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken,
			influxdb2.DefaultOptions().SetBatchSize(20).SetFlushInterval(1000))
		writer = event.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket))
		sinks = append(sinks, writer)
		recent = event.NewRecentHandler(influx.QueryAPI(cfg.InfluxOrg), cfg.InfluxBucket)
		log.Printf("web: recording predictions to influx %s/%s", cfg.InfluxOrg, cfg.InfluxBucket)
	}
	if cfg.RabbitHost != "" {
		client, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
			Host:     cfg.RabbitHost,
			Port:     cfg.RabbitPort,
			User:     cfg.RabbitUser,
			Password: cfg.RabbitPassword,
			ClientID: cfg.RabbitClientID,
		})
		if err != nil {
			log.Printf("web: MQTT event sink disabled: %v", err)
		} else {
			mqttSk = event.NewMQTTSink(rabbitmq.NewPublisher(client, 0), cfg.EventTopicTmpl)
			sinks = append(sinks, mqttSk)
		}
	}
	recorder := event.NewRecorder(sinks...)
	if names := recorder.Sinks(); len(names) > 0 {
		log.Printf("web: prediction event sinks: %s", strings.Join(names, ", "))
	} else {
		log.Printf("web: no prediction event sinks configured")
	}
	readiness := web.NewReadiness(event.NewProbe(mqttSk, writer, 30*time.Second), cropModel.Name(), diseaseModel.Name())

	// === HTTP ===
	app, err := web.New(web.Deps{
		Weather:        weatherClient,
		Crop:           cropModel,
		Disease:        diseaseModel,
		Advisor:        advisor,
		Community:      store,
		Recorder:       recorder,
		Readiness:      readiness,
		Metrics:        metrics,
		Recent:         recent,
		StaticDir:      cfg.StaticDir,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		RateLimit:      rate.Limit(cfg.RateRPS),
		RateBurst:      cfg.RateBurst,
		CORSOrigins:    cfg.CORSOrigins,
	})
	if err != nil {
		log.Fatalf("web: %v", err)
	}
	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("web: HTTP listening on :%s", cfg.Port)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// === gRPC health ===
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	var gs *grpc.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatalf("listen :%s: %v", cfg.GRPCPort, err)
		}
		gs = grpc.NewServer()
		healthpb.RegisterHealthServer(gs, healthSrv)
		go func() {
			log.Printf("web: gRPC health on :%s", cfg.GRPCPort)
			if err := gs.Serve(lis); err != nil {
				log.Fatalf("gRPC serve error: %v", err)
			}
		}()
	}

	// === Models ===
	go waitModels(ctx, ms(cfg.ModelReadyMs), readiness, healthSrv, cropModel, diseaseModel)

	// === Shutdown ===
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Println("web: shutting down...")

	readiness.SetDraining()
	healthSrv.Shutdown()

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	if err := hs.Shutdown(shCtx); err != nil {
		log.Printf("web: http shutdown: %v", err)
	}
	if gs != nil {
		gs.GracefulStop()
	}
	if writer != nil {
		writer.Flush()
		influx.Close()
	}
	if mongoStore != nil {
		if err := mongoStore.Close(shCtx); err != nil {
			log.Printf("web: mongo disconnect: %v", err)
		}
	}
	cancel()
	time.Sleep(300 * time.Millisecond)
}

// waitModels marks each model ready as soon as it answers. Past the start-up
// budget it keeps polling so a slow model server joins late.
func waitModels(ctx context.Context, budget time.Duration, readiness *web.Readiness, hs *health.Server, models ...waiter) {
	var wg sync.WaitGroup
	for _, m := range models {
		wg.Add(1)
		go func(m waiter) {
			defer wg.Done()
			wctx, cancel := context.WithTimeout(ctx, budget)
			err := m.WaitReady(wctx)
			cancel()
			if err != nil {
				log.Printf("web: model %s not ready after %s, still waiting: %v", m.Name(), budget, err)
				if err := m.WaitReady(ctx); err != nil {
					return
				}
			}
			readiness.SetModel(m.Name(), true)
		}(m)
	}
	wg.Wait()
	if readiness.Ready() {
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		log.Printf("web: all models ready")
	}
}
