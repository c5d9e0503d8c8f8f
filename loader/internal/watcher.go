package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"collegeseeker/loader"
	"collegeseeker/types"
)

// Job is one brochure file ready for ingestion.
type Job struct {
	Path  string
	Title string
	Text  string
}

// Watcher monitors a source directory for course brochures. A file that has
// not changed for the settle period is extracted and handed downstream.
type Watcher struct {
	cfg types.Config

	FileMutex       sync.Mutex
	FileFirstSeen   map[string]time.Time
	FilesProcessing map[string]bool
}

func NewWatcher(cfg types.Config) *Watcher {
	CreateDirectories(cfg.SourceDir, cfg.ArchiveDir, cfg.BadDir)
	return &Watcher{
		cfg:             cfg,
		FileFirstSeen:   make(map[string]time.Time),
		FilesProcessing: make(map[string]bool),
	}
}

func CreateDirectories(dirs ...string) {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("error creating directory %s: %v\n", dir, err)
		}
	}
}

func (w *Watcher) WatchFiles(ctx context.Context, fileChan chan<- string) {
	fmt.Printf("Start monitoring folder: %s\n", w.cfg.SourceDir)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	defer fmt.Println("File watcher stopped and cleaned up")

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopping file watcher (context cancelled)...")
			return
		case <-ticker.C:
			files, err := os.ReadDir(w.cfg.SourceDir)
			if err != nil {
				fmt.Printf("error while reading source directory: %s\n", err)
				continue
			}

			currentFiles := make(map[string]bool)

			for _, file := range files {
				if file.IsDir() {
					continue
				}

				filePath := filepath.Join(w.cfg.SourceDir, file.Name())
				currentFiles[filePath] = true

				w.FileMutex.Lock()
				if w.FilesProcessing[filePath] {
					w.FileMutex.Unlock()
					continue
				}

				if _, exists := w.FileFirstSeen[filePath]; !exists {
					w.FileFirstSeen[filePath] = time.Now()
					fmt.Printf("New file detected: %s\n", filePath)
					w.FileMutex.Unlock()
					continue
				}

				firstSeen := w.FileFirstSeen[filePath]
				w.FileMutex.Unlock()

				if time.Since(firstSeen) > w.cfg.MonitoringTime {
					fmt.Printf("The file %s has not been modified for more than %v seconds. Start processing...\n", filePath, w.cfg.MonitoringTime.Seconds())

					w.FileMutex.Lock()
					w.FilesProcessing[filePath] = true
					w.FileMutex.Unlock()

					select {
					case fileChan <- filePath:
					case <-ctx.Done():
						return
					}
				}
			}

			// Drop tracking for files that disappeared from the directory.
			w.FileMutex.Lock()
			for filePath := range w.FileFirstSeen {
				if !currentFiles[filePath] {
					delete(w.FileFirstSeen, filePath)
					delete(w.FilesProcessing, filePath)
					fmt.Printf("The file has been removed from tracking: %s\n", filePath)
				}
			}
			w.FileMutex.Unlock()
		}
	}
}

// ProcessFiles extracts the text of each incoming PDF and forwards a job.
// Files that fail extraction are moved to the bad directory right away.
func (w *Watcher) ProcessFiles(ctx context.Context, fileChan <-chan string, jobChan chan<- Job) {
	defer fmt.Println("File processor stopped and cleaned up")

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopping file processor (context cancelled)...")
			return
		case filePath, ok := <-fileChan:
			if !ok {
				fmt.Println("File channel closed, stopping processor...")
				return
			}

			fmt.Printf("Processing file: %s\n", filePath)
			text, err := w.extract(filePath)
			if err != nil {
				fmt.Printf("Error processing file %s: %v\n", filePath, err)
				w.MoveToArchive(filePath, 1)
				w.forget(filePath)
				continue
			}

			job := Job{
				Path:  filePath,
				Title: strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
				Text:  text,
			}

			select {
			case jobChan <- job:
			case <-ctx.Done():
				// Keep the file in source so it is picked up next run.
				w.FileMutex.Lock()
				delete(w.FilesProcessing, filePath)
				w.FileMutex.Unlock()
				return
			}
		}
	}
}

// extract optionally crops running headers/footers before pulling the text.
func (w *Watcher) extract(filePath string) (string, error) {
	path := filePath

	top, _ := strconv.ParseFloat(os.Getenv("LOADER_CROP_TOP"), 64)
	bottom, _ := strconv.ParseFloat(os.Getenv("LOADER_CROP_BOTTOM"), 64)
	if top > 0 || bottom > 0 {
		cropped := filePath + ".cropped"
		if err := loader.CropHeaderFooter(filePath, cropped, top, bottom); err != nil {
			fmt.Printf("crop failed for %s, extracting as-is: %v\n", filePath, err)
		} else {
			path = cropped
			defer os.Remove(cropped)
		}
	}

	return loader.ExtractPDF(path)
}

// MoveToArchive moves a processed file out of the source directory; code 0
// goes to the archive, anything else to the bad directory.
func (w *Watcher) MoveToArchive(filePath string, code int) {
	dest := w.cfg.ArchiveDir
	if code != 0 {
		dest = w.cfg.BadDir
	}

	target := filepath.Join(dest, filepath.Base(filePath))
	if err := os.Rename(filePath, target); err != nil {
		fmt.Printf("error moving %s to %s: %v\n", filePath, dest, err)
		return
	}
	fmt.Printf("Moved %s to %s\n", filePath, dest)
}

// Forget drops the tracking state of a file after its job completed.
func (w *Watcher) Forget(filePath string) {
	w.forget(filePath)
}

func (w *Watcher) forget(filePath string) {
	w.FileMutex.Lock()
	delete(w.FilesProcessing, filePath)
	delete(w.FileFirstSeen, filePath)
	w.FileMutex.Unlock()
}
