package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/deleyapp/lawcopilot/internal/client/audio"
	"github.com/deleyapp/lawcopilot/internal/client/knowledge"
	"github.com/deleyapp/lawcopilot/internal/config"
	"github.com/deleyapp/lawcopilot/internal/model/educator"
	"github.com/deleyapp/lawcopilot/internal/model/module"
	"github.com/deleyapp/lawcopilot/internal/service/voice"
	"github.com/deleyapp/lawcopilot/internal/store"
	"github.com/deleyapp/lawcopilot/internal/turn"
	"github.com/deleyapp/lawcopilot/internal/turn/fileio"
)

// turntester runs one full exchange against the live audio and knowledge
// services from the command line, for manual verification.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	audioPath := flag.String("audio", "", "path to a recorded audio file to transcribe")
	text := flag.String("text", "", "typed question, instead of audio")
	moduleFlag := flag.String("module", "teaching", "module kind: teaching, simulation or advisor")
	educatorID := flag.String("educator", "", "educator id, defaults to the module's default educator")
	outputPath := flag.String("out", "", "where to write the synthesized reply audio")
	timeout := flag.Duration("timeout", 90*time.Second, "overall turn timeout")

	flag.Parse()

	if (*audioPath == "") == (*text == "") {
		flag.Usage()
		log.Fatal("provide exactly one of -audio or -text")
	}

	kind, err := module.Parse(*moduleFlag)
	if err != nil {
		log.Fatalf("invalid -module: %v", err)
	}

	audioClient, err := audio.New(cfg.Audio.BaseURL,
		audio.WithHTTPClient(&http.Client{Timeout: cfg.Audio.Timeout}))
	if err != nil {
		log.Fatalf("failed to initialize audio client: %v", err)
	}

	knowledgeClient, err := knowledge.New(cfg.Knowledge.BaseURL,
		knowledge.WithHTTPClient(&http.Client{Timeout: cfg.Knowledge.Timeout}),
		knowledge.WithRetrieval(cfg.Knowledge.TopK, cfg.Knowledge.ScoreThreshold))
	if err != nil {
		log.Fatalf("failed to initialize knowledge client: %v", err)
	}

	sessionStore, err := store.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}

	educatorStore := educator.NewMemoryStore(educator.Seed())
	svc := voice.NewService(audioClient, knowledgeClient, sessionStore, educatorStore,
		voice.WithDebounce(cfg.Turn.Debounce))

	session, err := svc.StartSession(kind, *educatorID)
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	log.Printf("session %s started with educator %s", session.ID, session.EducatorName)

	input := voice.TurnInput{
		Session: &session,
		Text:    *text,
		OnState: func(s turn.State) {
			log.Printf("state: %s", s)
		},
	}

	if *audioPath != "" {
		capture := fileio.NewCapture(*audioPath)
		if err := capture.Start(context.Background()); err != nil {
			log.Fatalf("failed to open recording: %v", err)
		}
		clip, err := capture.Stop(context.Background())
		if err != nil {
			log.Fatalf("failed to close recording: %v", err)
		}
		input.AudioBase64, err = clip.EncodeBase64()
		if err != nil {
			log.Fatalf("failed to encode recording: %v", err)
		}
		log.Printf("submitting audio: %d base64 chars", len(input.AudioBase64))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := svc.RunTurn(ctx, input)
	if result != nil {
		for _, notice := range result.Notices {
			log.Printf("notice (%s): %s", notice.Level, notice.Message)
		}
	}
	if err != nil {
		log.Fatalf("turn failed: %v", err)
	}

	log.Printf("you said: %s", result.Exchange.UserMessage.Content)
	log.Printf("%s replied: %s", session.EducatorName, result.Exchange.AssistantMessage.Content)

	for i, src := range result.Sources {
		log.Printf("source %d: %s (score %.3f)", i+1, src.Label, src.SimilarityScore)
	}

	if result.Exchange.AudioBase64 == "" {
		log.Println("no reply audio was synthesized")
		return
	}

	if *outputPath == "" {
		log.Printf("reply audio: %d base64 chars (pass -out to save)", len(result.Exchange.AudioBase64))
		return
	}

	player := fileio.NewPlayer(*outputPath)
	if err := player.Play(ctx, result.Exchange.AudioBase64); err != nil {
		log.Fatalf("failed to write reply audio: %v", err)
	}
	log.Printf("reply audio written to %s", *outputPath)
}
