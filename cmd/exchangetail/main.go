// Command exchangetail follows the exchange and failure topics and prints
// each event, optionally relaying them to WebSocket clients.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

func consumeKafka(ctx context.Context, brokers []string, topic string, since time.Duration, out chan<- Event) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Printf("Failed to seek %s: %v", topic, err)
	}
	log.Printf("Consuming from Kafka topic: %s partition 0 (last %v)", topic, since)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// format renders an event as one line.
func format(ev Event) string {
	ts := time.UnixMilli(ev.Timestamp).Format(time.TimeOnly)
	if ev.Step != "" {
		return fmt.Sprintf("%s FAIL %s/%s at %s: %s", ts, ev.Identity, ev.Index, ev.Step, truncate(ev.Error, 120))
	}
	return fmt.Sprintf("%s OK   %s/%s %q -> %q", ts, ev.Identity, ev.Index, truncate(ev.Transcription, 60), truncate(ev.Answer, 80))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicExchange := flag.String("topic-exchange", "ivr.exchange.completed", "Exchange topic")
	topicFailure := flag.String("topic-failure", "ivr.cycle.failed", "Failure topic")
	since := flag.Duration("since", time.Hour, "Replay events newer than this")
	listen := flag.String("listen", "", "Serve a WebSocket feed at this address, e.g. :8081")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokerList := strings.Split(*brokers, ",")
	events := make(chan Event, 100)
	go consumeKafka(ctx, brokerList, *topicExchange, *since, events)
	go consumeKafka(ctx, brokerList, *topicFailure, *since, events)

	hub := newHub()
	if *listen != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", wsHandler(hub))
		srv := &http.Server{Addr: *listen, Handler: mux}
		go func() {
			log.Printf("WebSocket feed on ws://%s/ws", *listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		}()
		defer srv.Close()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			fmt.Println(format(ev))
			hub.broadcast(ev)
		}
	}
}
