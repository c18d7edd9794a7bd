package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// WriteURLLog writes one tab separated line per URL record to filePath:
// url, status, crawl duration in seconds and error type.
func WriteURLLog(ctx context.Context, store URLStore, filePath string, log *logrus.Entry) error {
	log.Info("Writing list of known URLs (from DB)...")
	file, err := os.Create(filePath)
	if err != nil {
		log.Errorf("Failed create URL log '%s': %v", filePath, err)
		return fmt.Errorf("%w: create URL log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	defer file.Close() // Ensure file is closed

	writer := bufio.NewWriter(file)
	var ioErr error
	writtenCount := 0

	iterErr := store.EachURL(ctx, func(rec models.URLRecord) error {
		line := rec.URL + "\t" + rec.Status.String() + "\t" +
			strconv.FormatFloat(rec.CrawlDuration, 'f', 3, 64) + "\t" + rec.ErrorType + "\n"
		if _, writeErr := writer.WriteString(line); writeErr != nil {
			if ioErr == nil { // Store first write error
				ioErr = writeErr
			}
			log.Errorf("Error writing URL '%s' to URL log: %v", rec.URL, writeErr)
			return nil // Continue writing other URLs if possible
		}
		writtenCount++
		if writtenCount%5000 == 0 {
			log.Debugf("Flushing URL log writer after %d entries...", writtenCount)
			if flushErr := writer.Flush(); flushErr != nil && ioErr == nil {
				ioErr = flushErr
			}
		}
		return nil
	})

	// Handle errors after iteration
	if iterErr != nil && !errors.Is(iterErr, context.Canceled) && !errors.Is(iterErr, context.DeadlineExceeded) {
		log.Errorf("Error during URL iteration for log: %v", iterErr)
		if ioErr == nil {
			ioErr = iterErr
		}
	}

	// Final flush
	if flushErr := writer.Flush(); flushErr != nil {
		log.Errorf("Failed final flush for URL log '%s': %v", filePath, flushErr)
		if ioErr == nil {
			ioErr = flushErr
		}
	}

	// Sync to disk before closing
	if syncErr := file.Sync(); syncErr != nil {
		log.Errorf("Failed to sync URL log '%s': %v", filePath, syncErr)
		if ioErr == nil {
			ioErr = syncErr
		}
	}

	if iterErr == nil && ioErr == nil {
		log.Infof("Finished writing %d URLs to URL log: %s", writtenCount, filePath)
	} else {
		log.Warnf("Finished writing URL log with errors. Wrote ~%d URLs to %s", writtenCount, filePath)
	}

	// Return context error if iteration was cancelled, otherwise return first IO/DB error
	if errors.Is(iterErr, context.Canceled) || errors.Is(iterErr, context.DeadlineExceeded) {
		return iterErr
	}
	if ioErr != nil && !errors.Is(ioErr, utils.ErrDatabase) {
		return fmt.Errorf("%w: %w", utils.ErrFilesystem, ioErr)
	}
	return ioErr
}
