package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptTemplateFile replaces Review.PromptTemplate with the contents of
// Review.PromptTemplateFile when one is configured
func (c *Config) loadPromptTemplateFile() error {
	filePath := c.Review.PromptTemplateFile
	if filePath == "" {
		if c.Review.PromptTemplate == "" {
			log.Println("[CONFIG] No custom review prompt configured - using built-in default")
		} else {
			log.Println("[CONFIG] Custom review prompt: loaded from config")
		}
		return nil
	}

	if c.Review.PromptTemplate != "" {
		return fmt.Errorf("cannot specify both review.promptTemplate and review.promptTemplateFile - choose one")
	}

	content, err := loadPromptFromFile(filePath)
	if err != nil {
		return err
	}
	c.Review.PromptTemplate = content
	return nil
}

// loadPromptFromFile reads a prompt template, rejecting missing and empty files
func loadPromptFromFile(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for prompt file '%s': %w", filePath, err)
	}

	info, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("prompt file not found: %s", absPath)
	}
	if err != nil {
		return "", fmt.Errorf("cannot access prompt file '%s': %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("prompt file '%s' is a directory", absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file '%s': %w", absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("prompt file '%s' is empty", absPath)
	}

	log.Printf("[CONFIG] Successfully loaded review prompt from file: %s (%d characters)",
		absPath, len(trimmedContent))

	return trimmedContent, nil
}
