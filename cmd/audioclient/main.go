package main

import (
	"context"
	"encoding/binary"
	"flag"
	"log"
	"os"
	"time"

	"ivr-voice-bridge-service/internal/service/cycle"
	"ivr-voice-bridge-service/internal/service/filestore"
	"ivr-voice-bridge-service/internal/service/filestore/yemot"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Uploads a WAV file as a caller's recording, the way the IVR platform does
// after the caller speaks, so the service picks it up on its next scan.
func main() {
	audioFile := flag.String("audio", "testdata/sample-8khz.wav", "Path to WAV file (PCM)")
	phone := flag.String("phone", "0500000000", "Caller identity")
	index := flag.Int("index", 0, "Sequence index of the recording")
	baseURL := flag.String("base-url", yemot.DefaultBaseURL, "IVR API base URL")
	root := flag.String("root", "ivr2:/5/Phone", "Remote root directory")
	flag.Parse()

	token := os.Getenv("YEMOT_TOKEN")
	if token == "" {
		log.Fatal("YEMOT_TOKEN is required")
	}

	data, err := os.ReadFile(*audioFile)
	if err != nil {
		log.Fatalf("Failed to read audio file: %v", err)
	}
	if len(data) < wavHeaderSize {
		log.Fatal("File too short for a WAV header")
	}

	header := data[:wavHeaderSize]
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if sampleRate != 8000 {
		log.Printf("Warning: Sample rate is %d Hz, IVR recordings are usually 8000 Hz", sampleRate)
	}

	client := yemot.New(yemot.Config{BaseURL: *baseURL, Token: token, Timeout: 60 * time.Second}, nil)
	path := filestore.Path(*root, *phone, cycle.BaseName(*index)+".wav")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Store(ctx, path, data); err != nil {
		log.Fatalf("Failed to upload recording: %v", err)
	}
	log.Printf("Uploaded %d bytes to %s in %v", len(data), path, time.Since(start))
}
