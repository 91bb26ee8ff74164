package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/adapters/audio"
	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
	"github.com/sufrahq/sufra-voice/internal/voice"
)

// voice is the local ordering client: microphone in, speaker out, one voice
// session against the realtime endpoint. The catalog and the ephemeral
// credential come from the sufra-voice server.

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	serverURL := os.Getenv("SUFRA_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	restaurants, err := fetchRestaurants(serverURL)
	if err != nil {
		logger.Fatal("Failed to fetch restaurant catalog", zap.Error(err))
	}
	logger.Info("Restaurant catalog loaded", zap.Int("count", len(restaurants)))

	player, err := audio.NewOtoPlayer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize audio playback", zap.Error(err))
	}

	ctrl := voice.NewController(uuid.New().String(), voice.Config{
		UserID:      "guest-" + uuid.New().String(),
		Issuer:      &serverIssuer{baseURL: serverURL},
		Capture:     audio.NewMalgoCapture(logger),
		Player:      player,
		Restaurants: restaurants,
		Orders:      &printingOrders{logger: logger},
		Sink:        consoleSink{},
		Logger:      logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	fmt.Println("Press Enter to start talking. Enter again ends your turn. Ctrl+C quits.")
	ctrl.Dispatch(voice.MicPressed{})

	lines := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- struct{}{}
		}
		close(lines)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case _, ok := <-lines:
			if !ok {
				ctrl.Dispatch(voice.OverlayClosed{})
				return
			}
			ctrl.Dispatch(voice.MicPressed{})
		case <-quit:
			ctrl.Dispatch(voice.OverlayClosed{})
			return
		}
	}
}

func fetchRestaurants(baseURL string) ([]*entities.Restaurant, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/restaurants")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request returned status %d", resp.StatusCode)
	}

	var restaurants []*entities.Restaurant
	if err := json.NewDecoder(resp.Body).Decode(&restaurants); err != nil {
		return nil, err
	}
	return restaurants, nil
}

// serverIssuer obtains ephemeral credentials through the server, which holds
// the real API key.
type serverIssuer struct {
	baseURL string
}

func (s *serverIssuer) Issue(ctx context.Context, bearer string) (repositories.EphemeralCredential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/realtime/token", nil)
	if err != nil {
		return repositories.EphemeralCredential{}, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return repositories.EphemeralCredential{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return repositories.EphemeralCredential{}, fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Secret    string    `json:"secret"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return repositories.EphemeralCredential{}, err
	}
	return repositories.EphemeralCredential{Secret: parsed.Secret, ExpiresAt: parsed.ExpiresAt}, nil
}

// printingOrders confirms voice orders locally. The assistant tracked the
// order verbally, so confirmation only needs a reference the user can quote.
type printingOrders struct {
	logger *zap.Logger
}

func (p *printingOrders) ConfirmVoiceOrder(ctx context.Context, userID, summary string, total float64) (string, error) {
	orderID := uuid.New().String()
	p.logger.Info("Order confirmed",
		zap.String("orderID", orderID),
		zap.String("summary", summary),
		zap.Float64("total", total))
	return orderID, nil
}

// consoleSink renders session output on the terminal.
type consoleSink struct{}

func (consoleSink) Status(status string) {
	fmt.Printf("\n[%s]\n", status)
}

func (consoleSink) AssistantDelta(text string) {
	fmt.Print(text)
}

func (consoleSink) Utterance(entry entities.TranscriptEntry) {
	fmt.Printf("\n%s: %s\n", entry.Speaker, entry.Text)
}
