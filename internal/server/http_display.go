package server

import (
	"fmt"

	"hrportal/internal/utils"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayModelInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows the routes the portal serves
func (s *Server) displayEndpoints() {
	scheme := "http"
	if s.TLSConfig.Enabled {
		scheme = "https"
	}
	fmt.Printf("SMU HR: Oasis Portal listening on %s://%s:%s\n", scheme, s.Host, s.Port)
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /             - Portal page")
	fmt.Println("  POST /review       - Execute performance review")
	fmt.Println("  POST /chat         - Defend your profile")
	fmt.Println("  POST /reset        - Evaluate new candidate")
	fmt.Println("  GET  /download     - Download review (format=txt|md|json, scope=transcript)")
	fmt.Println("  GET  /api/session  - Session snapshot (JSON)")
	fmt.Println("  GET  /health       - Health check")
	fmt.Println("  GET  /stats        - Server statistics")
}

// displayModelInfo warns when the form is inert
func (s *Server) displayModelInfo() {
	if s.Starter == nil {
		fmt.Println("Gemini: NOT CONFIGURED (set GEMINI_API_KEY); reviews are disabled")
		return
	}
	fmt.Printf("Gemini: configured (model preference: %s)\n", s.AppConfig.AI.Model)
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %s (uploads up to %s)\n",
			utils.FormatFileSize(s.MaxRequestSize), utils.FormatFileSize(s.maxFileSize()))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimiter != nil {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min per IP, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
