package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type exchange struct {
	Phone         string `json:"phone"`
	Index         string `json:"index"`
	Transcription string `json:"transcription"`
	Answer        string `json:"answer"`
}

func main() {
	server := flag.String("server", "http://localhost:3000", "Service base URL")
	phone := flag.String("phone", "0500000000", "Caller identity (ApiPhone)")
	wait := flag.Duration("wait", 60*time.Second, "How long to wait for an exchange")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	form := url.Values{"ApiPhone": {*phone}}
	resp, err := client.Post(*server+"/api/ym", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		log.Fatalf("failed to send webhook: %v", err)
	}
	var directive map[string]string
	json.NewDecoder(resp.Body).Decode(&directive)
	resp.Body.Close()
	log.Printf("Webhook accepted: phone=%s response=%v", *phone, directive)

	baseline := countExchanges(client, *server, *phone)
	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		time.Sleep(time.Second)

		exchanges := fetchExchanges(client, *server, *phone)
		if len(exchanges) > baseline {
			ex := exchanges[len(exchanges)-1]
			log.Printf("Exchange %s: transcription=%q", ex.Index, ex.Transcription)
			log.Printf("Exchange %s: answer=%q", ex.Index, ex.Answer)
			return
		}
	}
	log.Fatalf("no exchange for %s within %v (is the recording uploaded?)", *phone, *wait)
}

func countExchanges(client *http.Client, server, phone string) int {
	return len(fetchExchanges(client, server, phone))
}

func fetchExchanges(client *http.Client, server, phone string) []exchange {
	resp, err := client.Get(server + "/results")
	if err != nil {
		log.Printf("failed to fetch results: %v", err)
		return nil
	}
	defer resp.Body.Close()

	var all []exchange
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		log.Printf("failed to decode results: %v", err)
		return nil
	}
	var mine []exchange
	for _, ex := range all {
		if ex.Phone == phone {
			mine = append(mine, ex)
		}
	}
	return mine
}
