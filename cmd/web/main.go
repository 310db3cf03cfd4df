// Web API for the AML monitoring toolkit using Gin framework.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aml-monitor/internal/agent"
	"aml-monitor/internal/assign"
	"aml-monitor/internal/config"
	"aml-monitor/internal/rules"
	"aml-monitor/internal/scoring"
)

var (
	cfg     config.Config
	aiAgent *agent.Agent
)

func main() {
	addr := flag.String("addr", ":8181", "Listen address")
	flag.Parse()

	cfg = config.Load()

	ctx := context.Background()
	var err error
	aiAgent, err = agent.NewAgent(ctx, cfg.APIKey)
	if err != nil {
		log.Fatalf("initializing AI agent: %v", err)
	}
	if aiAgent == nil {
		log.Println("No GEMINI_API_KEY/GOOGLE_API_KEY set; agent endpoints disabled")
	} else {
		defer aiAgent.Close()
	}

	// Use release mode in production
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", handleHealth)

	api := r.Group("/api")
	{
		// Deterministic scoring endpoints
		api.POST("/score", handleScore)
		api.POST("/score/csv", handleScoreCSV)
		api.POST("/assign", handleAssign)

		// Agent endpoints
		api.POST("/criteria/extract", handleExtractCriteria)
		api.POST("/assess", handleAssess)
	}

	log.Printf("Starting Gin server on %s", *addr)
	if err := r.Run(*addr); err != nil {
		log.Fatal(err)
	}
}

// corsMiddleware adds CORS headers for cross-origin requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":        "ok",
		"agent_enabled": aiAgent != nil,
		"store_type":    string(cfg.Store.Type),
	})
}

// ============================================================================
// Scoring Handlers
// ============================================================================

type scoreRequest struct {
	Transactions []map[string]string `json:"transactions"`
	Criteria     []rules.Criterion   `json:"criteria"`
	Fields       []string            `json:"fields,omitempty"`
}

func handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if len(req.Criteria) == 0 {
		c.JSON(400, gin.H{"error": "criteria is required"})
		return
	}

	txs := make([]scoring.Transaction, len(req.Transactions))
	for i, m := range req.Transactions {
		txs[i] = scoring.Transaction(m)
	}
	fields := req.Fields
	if len(fields) == 0 {
		fields = cfg.ScoreFields
	}

	scored := scoring.Score(req.Criteria, txs, fields)
	c.JSON(200, gin.H{"transactions": scored})
}

// handleScoreCSV scores a multipart CSV upload against an uploaded
// criteria JSON file.
func handleScoreCSV(c *gin.Context) {
	txs, err := parseCSVUpload(c, "transactions")
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	criteriaFile, err := c.FormFile("criteria")
	if err != nil {
		c.JSON(400, gin.H{"error": "missing criteria upload: " + err.Error()})
		return
	}
	f, err := criteriaFile.Open()
	if err != nil {
		c.JSON(400, gin.H{"error": "opening criteria upload: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(400, gin.H{"error": "reading criteria upload: " + err.Error()})
		return
	}
	criteria, err := rules.ParseCriteria(data)
	if err != nil {
		c.JSON(400, gin.H{"error": "parsing criteria: " + err.Error()})
		return
	}

	scored := scoring.Score(criteria, txs, cfg.ScoreFields)
	c.JSON(200, gin.H{"transactions": scored})
}

type assignRequest struct {
	Transactions []map[string]string `json:"transactions"`
	FlagColumn   string              `json:"flag_column,omitempty"`
	Threshold    *float64            `json:"threshold,omitempty"`
}

func handleAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	flagColumn := req.FlagColumn
	if flagColumn == "" {
		flagColumn = cfg.FlagColumn
	}
	threshold := cfg.FlagThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	txs := make([]scoring.Transaction, len(req.Transactions))
	for i, m := range req.Transactions {
		txs[i] = scoring.Transaction(m)
	}

	flagged := assign.Flag(txs, flagColumn, threshold)
	teams := assign.Teams(flagged, time.Now())
	for i, team := range teams {
		flagged[i][assign.ColAssignedTeam] = team
	}
	c.JSON(200, gin.H{"transactions": flagged})
}

// ============================================================================
// Agent Handlers
// ============================================================================

type extractRequest struct {
	Clause string `json:"clause"`
	Source string `json:"source,omitempty"`
}

func handleExtractCriteria(c *gin.Context) {
	if aiAgent == nil {
		c.JSON(503, gin.H{"error": "AI agent not configured"})
		return
	}
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Clause) == "" {
		c.JSON(400, gin.H{"error": "clause is required"})
		return
	}

	criteria, err := aiAgent.ExtractCriteria(c.Request.Context(), req.Clause, req.Source)
	if err != nil {
		c.JSON(502, gin.H{"error": "Extraction failed: " + err.Error()})
		return
	}
	c.JSON(200, gin.H{"criteria": criteria})
}

type assessRequest struct {
	Transaction map[string]string         `json:"transaction"`
	RuleSet     *rules.RuleSet            `json:"rule_set"`
	RuleSets    map[string]*rules.RuleSet `json:"rule_sets,omitempty"`
}

func handleAssess(c *gin.Context) {
	if aiAgent == nil {
		c.JSON(503, gin.H{"error": "AI agent not configured"})
		return
	}
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	rs := req.RuleSet
	if rs == nil && len(req.RuleSets) > 0 {
		regulator := strings.ToUpper(req.Transaction["regulator"])
		rs = req.RuleSets[regulator]
		if rs == nil {
			rs = req.RuleSets["MAS"]
		}
	}
	if rs == nil {
		c.JSON(400, gin.H{"error": "rule_set is required"})
		return
	}

	assessment, err := aiAgent.AssessTransaction(c.Request.Context(), scoring.Transaction(req.Transaction), rs)
	if err != nil {
		c.JSON(502, gin.H{"error": "Assessment failed: " + err.Error()})
		return
	}
	c.JSON(200, assessment)
}

// parseCSVUpload reads an uploaded CSV form file into header-keyed rows.
func parseCSVUpload(c *gin.Context, field string) ([]scoring.Transaction, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %s upload: %w", field, err)
	}
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	txs := make([]scoring.Transaction, 0, len(records)-1)
	for _, record := range records[1:] {
		tx := scoring.Transaction{}
		for i, col := range header {
			if i < len(record) {
				tx[col] = record[i]
			} else {
				tx[col] = ""
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
