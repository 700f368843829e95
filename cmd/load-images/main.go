package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"medgen-server/internal/config"
	"medgen-server/internal/db"
)

type imageRecord struct {
	Path    string
	Type    string
	Age     int
	Gender  string
	Race    string
	Disease string
}

func main() {
	filePath := flag.String("file", "images.csv", "path to image manifest csv (path,type,age,gender,race,disease)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	records, err := readManifest(*filePath)
	if err != nil {
		log.Fatalf("failed to read image manifest: %v", err)
	}

	inserted := 0
	for _, record := range records {
		entry := db.Image{
			Path:       record.Path,
			Type:       record.Type,
			Age:        record.Age,
			Gender:     record.Gender,
			Race:       record.Race,
			Disease:    record.Disease,
			UploadTime: time.Now().UTC(),
		}
		if err := conn.FirstOrCreate(&entry, db.Image{Path: record.Path}).Error; err != nil {
			log.Fatalf("failed to upsert image: %v", err)
		}
		inserted++
	}

	log.Printf("loaded %d images", inserted)
}

func readManifest(path string) ([]imageRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var records []imageRecord
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "path") {
			continue
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns, got %d", i+1, len(row))
		}
		imageType := strings.ToLower(strings.TrimSpace(row[1]))
		if imageType != db.ImageTypeReal && imageType != db.ImageTypeAI {
			return nil, fmt.Errorf("row %d: image type must be real or ai", i+1)
		}
		age, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad age: %w", i+1, err)
		}
		records = append(records, imageRecord{
			Path:    strings.TrimSpace(row[0]),
			Type:    imageType,
			Age:     age,
			Gender:  strings.TrimSpace(row[3]),
			Race:    strings.TrimSpace(row[4]),
			Disease: strings.TrimSpace(row[5]),
		})
	}
	return records, nil
}
