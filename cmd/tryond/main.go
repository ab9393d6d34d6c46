package main

import (
	"fmt"
	"log"

	"watch-tryon/internal/auth"
	"watch-tryon/internal/config"
	"watch-tryon/internal/detector"
	"watch-tryon/internal/segmenter"
	"watch-tryon/internal/server"
	"watch-tryon/internal/store"
	"watch-tryon/internal/thumbnail"
	"watch-tryon/internal/tryon"
)

func main() {
	fmt.Println("Watch Try-On Service")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	authSvc, err := auth.NewService(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	detectorCfg := detector.DefaultConfig()
	detectorCfg.ScriptPath = cfg.DetectorScript
	detectorCfg.PythonPath = cfg.PythonPath
	hands, err := detector.NewMediaPipeDetector(detectorCfg)
	if err != nil {
		log.Fatalf("Failed to initialize hand detector: %v", err)
	}
	defer hands.Close()

	segmenterCfg := segmenter.DefaultConfig()
	segmenterCfg.ScriptPath = cfg.SegmenterScript
	segmenterCfg.PythonPath = cfg.PythonPath
	watches, err := segmenter.NewYOLOSegmenter(segmenterCfg)
	if err != nil {
		log.Fatalf("Failed to initialize watch segmenter: %v", err)
	}
	defer watches.Close()

	pipeline := tryon.New(hands, watches, tryon.Config{})

	thumbs, err := thumbnail.NewCache(cfg.ImageDir, cfg.ThumbDir)
	if err != nil {
		log.Fatalf("Failed to initialize thumbnail cache: %v", err)
	}
	warmThumbnails(st, thumbs)

	srv := server.New(server.Config{
		Store:          st,
		TryOn:          pipeline,
		Auth:           authSvc,
		Thumbnails:     thumbs,
		ImageDir:       cfg.ImageDir,
		StaticDir:      cfg.StaticDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
	})

	fmt.Printf("Starting server on %s\n", cfg.Addr)
	if err := srv.ListenAndServe(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// warmThumbnails queues background thumbnail renders for the catalog.
func warmThumbnails(st *store.Store, thumbs *thumbnail.Cache) {
	products, err := st.Products().List(store.ProductFilter{})
	if err != nil {
		log.Printf("Failed to list products for thumbnail warmup: %v", err)
		return
	}

	names := make([]string, 0, len(products))
	for _, p := range products {
		if p.Image != "" {
			names = append(names, p.Image)
		}
	}
	thumbs.Warm(names)
}
