// Package integration provides end-to-end integration tests for the trading system.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"zerodha-trader/internal/agents"
	"zerodha-trader/internal/analysis"
	"zerodha-trader/internal/broker"
	"zerodha-trader/internal/config"
	"zerodha-trader/internal/models"
	"zerodha-trader/internal/stream"
)

// TestEndToEndWorkflow tests the complete workflow from data reception to trade decision.
func TestEndToEndWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Setup paper broker
	paperBroker := broker.NewPaperBroker(broker.PaperBrokerConfig{
		InitialBalance: 1000000, // 10 lakhs
	})

	// Setup stream hub
	hub := stream.NewHub()
	if err := hub.Start(ctx); err != nil {
		t.Fatalf("Failed to start hub: %v", err)
	}
	defer hub.Stop()

	// Setup agents
	agentWeights := map[string]float64{
		"technical": 0.35,
		"research":  0.25,
		"news":      0.15,
		"risk":      0.25,
	}

	technicalAgent := agents.NewTechnicalAgent(nil, 0.35)
	riskAgent := agents.NewRiskAgent(nil, 0.25)
	traderAgent := agents.NewTraderAgent(nil, agentWeights, 1.0, 0.003)

	agentList := []agents.Agent{technicalAgent}

	// Setup orchestrator
	agentConfig := &config.AgentConfig{
		AutonomousMode:       "FULL_AUTO",
		AutoExecuteThreshold: 70,
		MaxDailyTrades:       10,
		MaxDailyLoss:         5000,
		CooldownMinutes:      0,
		ConsecutiveLossLimit: 3,
	}

	orchestrator := agents.NewOrchestrator(
		agentList,
		traderAgent,
		riskAgent,
		agentConfig,
		nil, // No store for this test
		nil, // No notifier for this test
	)

	if err := orchestrator.Start(ctx); err != nil {
		t.Fatalf("Failed to start orchestrator: %v", err)
	}
	defer orchestrator.Stop()

	// Test 1: Verify paper broker is authenticated
	if !paperBroker.IsAuthenticated() {
		t.Error("Paper broker should always be authenticated")
	}

	// Test 2: Place a paper order
	order := &models.Order{
		Symbol:   "RELIANCE",
		Exchange: models.NSE,
		Side:     models.OrderSideBuy,
		Type:     models.OrderTypeMarket,
		Product:  models.ProductMIS,
		Quantity: 10,
	}

	// Update price cache first
	paperBroker.UpdatePrice("RELIANCE", 2500.0)

	result, err := paperBroker.PlaceOrder(ctx, order, "")
	if err != nil {
		t.Fatalf("Failed to place paper order: %v", err)
	}

	if result.OrderID == "" {
		t.Error("Order ID should not be empty")
	}

	// Test 3: Verify position was created
	positions, err := paperBroker.GetPositions(ctx)
	if err != nil {
		t.Fatalf("Failed to get positions: %v", err)
	}

	if len(positions) == 0 {
		t.Error("Expected at least one position after order")
	}

	// Test 4: Verify balance was updated
	balance, err := paperBroker.GetBalance(ctx)
	if err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}

	if balance.AvailableCash >= 1000000 {
		t.Error("Available cash should have decreased after buy order")
	}

	// Test 5: Process symbol through orchestrator
	req := agents.AnalysisRequest{
		Symbol:       "RELIANCE",
		CurrentPrice: 2500.0,
		SignalScore: &analysis.SignalScore{
			Score:          50,
			Recommendation: analysis.Buy,
		},
		Portfolio: &agents.PortfolioState{
			TotalValue:    1000000,
			AvailableCash: 500000,
		},
	}

	decision, err := orchestrator.ProcessSymbol(ctx, req)
	if err != nil {
		t.Fatalf("Failed to process symbol: %v", err)
	}

	// A nil decision (Hold consensus, or a candidate that failed its
	// emit-time invariants) is a valid policy outcome here.
	if decision == nil {
		t.Log("End-to-end workflow test passed: no candidate emitted (Hold consensus)")
		return
	}

	if decision.Candidate.Symbol != "RELIANCE" {
		t.Errorf("Expected symbol RELIANCE, got %s", decision.Candidate.Symbol)
	}

	if decision.Candidate.Confidence < 0 || decision.Candidate.Confidence > 1 {
		t.Errorf("Confidence should be in [0, 1], got %f", decision.Candidate.Confidence)
	}

	t.Logf("End-to-end workflow test passed: Direction=%s, Confidence=%.2f", decision.Candidate.Direction, decision.Candidate.Confidence)
}

// TestPaperTradingSimulation tests the paper trading simulation functionality.
func TestPaperTradingSimulation(t *testing.T) {
	ctx := context.Background()

	// Create paper broker with initial balance
	initialBalance := 500000.0
	paperBroker := broker.NewPaperBroker(broker.PaperBrokerConfig{
		InitialBalance: initialBalance,
	})

	// Test 1: Initial state
	balance, err := paperBroker.GetBalance(ctx)
	if err != nil {
		t.Fatalf("Failed to get initial balance: %v", err)
	}

	if balance.AvailableCash != initialBalance {
		t.Errorf("Expected initial balance %.2f, got %.2f", initialBalance, balance.AvailableCash)
	}

	// Test 2: Place buy order
	paperBroker.UpdatePrice("TCS", 3500.0)

	buyOrder := &models.Order{
		Symbol:   "TCS",
		Exchange: models.NSE,
		Side:     models.OrderSideBuy,
		Type:     models.OrderTypeMarket,
		Product:  models.ProductMIS,
		Quantity: 10,
	}

	buyResult, err := paperBroker.PlaceOrder(ctx, buyOrder, "")
	if err != nil {
		t.Fatalf("Failed to place buy order: %v", err)
	}

	if buyResult.Status != "COMPLETE" {
		t.Errorf("Expected order status COMPLETE, got %s", buyResult.Status)
	}

	// Test 3: Verify position
	positions, err := paperBroker.GetPositions(ctx)
	if err != nil {
		t.Fatalf("Failed to get positions: %v", err)
	}

	var tcsPosition *models.Position
	for i := range positions {
		if positions[i].Symbol == "TCS" {
			tcsPosition = &positions[i]
			break
		}
	}

	if tcsPosition == nil {
		t.Fatal("Expected TCS position to exist")
	}

	if tcsPosition.Quantity != 10 {
		t.Errorf("Expected quantity 10, got %d", tcsPosition.Quantity)
	}

	// Test 4: Update price and check P&L
	newPrice := 3600.0
	paperBroker.UpdatePrice("TCS", newPrice)

	positions, _ = paperBroker.GetPositions(ctx)
	for i := range positions {
		if positions[i].Symbol == "TCS" {
			tcsPosition = &positions[i]
			break
		}
	}

	expectedPnL := (newPrice - 3500.0) * 10
	if tcsPosition.PnL != expectedPnL {
		t.Errorf("Expected P&L %.2f, got %.2f", expectedPnL, tcsPosition.PnL)
	}

	// Test 5: Place sell order to close position
	sellOrder := &models.Order{
		Symbol:   "TCS",
		Exchange: models.NSE,
		Side:     models.OrderSideSell,
		Type:     models.OrderTypeMarket,
		Product:  models.ProductMIS,
		Quantity: 10,
	}

	sellResult, err := paperBroker.PlaceOrder(ctx, sellOrder, "")
	if err != nil {
		t.Fatalf("Failed to place sell order: %v", err)
	}

	if sellResult.Status != "COMPLETE" {
		t.Errorf("Expected order status COMPLETE, got %s", sellResult.Status)
	}

	// Test 6: Verify position is closed
	positions, _ = paperBroker.GetPositions(ctx)
	for _, pos := range positions {
		if pos.Symbol == "TCS" && pos.Quantity != 0 {
			t.Error("Expected TCS position to be closed")
		}
	}

	// Test 7: Verify balance reflects profit
	finalBalance, _ := paperBroker.GetBalance(ctx)
	expectedBalance := initialBalance - (3500.0 * 10) + (3600.0 * 10)
	if finalBalance.AvailableCash != expectedBalance {
		t.Errorf("Expected final balance %.2f, got %.2f", expectedBalance, finalBalance.AvailableCash)
	}

	t.Logf("Paper trading simulation test passed: Initial=%.2f, Final=%.2f, Profit=%.2f",
		initialBalance, finalBalance.AvailableCash, finalBalance.AvailableCash-initialBalance)
}

// TestAgentCoordination tests that multiple agents coordinate correctly.
func TestAgentCoordination(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create multiple agents
	agentWeights := map[string]float64{
		"technical": 0.35,
		"research":  0.25,
		"news":      0.15,
		"risk":      0.25,
	}

	technicalAgent := agents.NewTechnicalAgent(nil, 0.35)
	researchAgent := agents.NewResearchAgent(nil, nil, 0.25)
	newsAgent := agents.NewNewsAgent(nil, nil, 0.15)
	riskAgent := agents.NewRiskAgent(nil, 0.25)
	traderAgent := agents.NewTraderAgent(nil, agentWeights, 1.0, 0.003)

	agentList := []agents.Agent{
		technicalAgent,
		researchAgent,
		newsAgent,
	}

	// Setup orchestrator
	agentConfig := &config.AgentConfig{
		AutonomousMode:       "FULL_AUTO",
		AutoExecuteThreshold: 70,
		MaxDailyTrades:       10,
		MaxDailyLoss:         5000,
		CooldownMinutes:      0,
		ConsecutiveLossLimit: 3,
	}

	orchestrator := agents.NewOrchestrator(
		agentList,
		traderAgent,
		riskAgent,
		agentConfig,
		nil,
		nil,
	)

	if err := orchestrator.Start(ctx); err != nil {
		t.Fatalf("Failed to start orchestrator: %v", err)
	}
	defer orchestrator.Stop()

	// Test 1: Verify all agents are registered
	registeredAgents := orchestrator.GetAgents()
	if len(registeredAgents) != 3 {
		t.Errorf("Expected 3 agents, got %d", len(registeredAgents))
	}

	// Test 2: Verify orchestrator status
	status := orchestrator.GetStatus()
	if !status.Running {
		t.Error("Orchestrator should be running")
	}

	if status.Paused {
		t.Error("Orchestrator should not be paused")
	}

	// Test 3: Process symbol and verify all agents contribute
	req := agents.AnalysisRequest{
		Symbol:       "INFY",
		CurrentPrice: 1500.0,
		SignalScore: &analysis.SignalScore{
			Score:          60,
			Recommendation: analysis.Buy,
		},
		Portfolio: &agents.PortfolioState{
			TotalValue:    1000000,
			AvailableCash: 500000,
		},
		MarketState: &agents.MarketState{
			NiftyLevel:  18000,
			VIXLevel:    15,
			MarketTrend: "BULLISH",
		},
	}

	decision, err := orchestrator.ProcessSymbol(ctx, req)
	if err != nil {
		t.Fatalf("Failed to process symbol: %v", err)
	}

	if decision == nil {
		t.Log("Agent coordination test passed: no candidate emitted (Hold consensus)")
		return
	}

	// Test 4: Verify risk check was performed
	if decision.RiskCheck == nil {
		t.Error("Decision should have risk check result")
	}

	// Test 5: Test pause/resume
	if err := orchestrator.Pause(); err != nil {
		t.Fatalf("Failed to pause orchestrator: %v", err)
	}

	status = orchestrator.GetStatus()
	if !status.Paused {
		t.Error("Orchestrator should be paused")
	}

	// Processing should fail when paused
	_, err = orchestrator.ProcessSymbol(ctx, req)
	if err == nil {
		t.Error("Processing should fail when orchestrator is paused")
	}

	if err := orchestrator.Resume(); err != nil {
		t.Fatalf("Failed to resume orchestrator: %v", err)
	}

	status = orchestrator.GetStatus()
	if status.Paused {
		t.Error("Orchestrator should not be paused after resume")
	}

	t.Logf("Agent coordination test passed: Agents=%d, Confidence=%.2f",
		len(registeredAgents), decision.Candidate.Confidence)
}

// TestStreamHubIntegration tests the stream hub with multiple consumers.
func TestStreamHubIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub := stream.NewHub()
	if err := hub.Start(ctx); err != nil {
		t.Fatalf("Failed to start hub: %v", err)
	}
	defer hub.Stop()

	// Subscribe multiple consumers to same symbol
	symbol := "HDFC"
	numConsumers := 5
	channels := make([]<-chan models.Tick, numConsumers)

	for i := 0; i < numConsumers; i++ {
		channels[i] = hub.Subscribe(symbol)
	}

	// Verify subscriber count
	if hub.GetSubscriberCount(symbol) != numConsumers {
		t.Errorf("Expected %d subscribers, got %d", numConsumers, hub.GetSubscriberCount(symbol))
	}

	// Publish ticks and verify all consumers receive them
	numTicks := 10
	var wg sync.WaitGroup
	receivedCounts := make([]int, numConsumers)

	for i := 0; i < numConsumers; i++ {
		wg.Add(1)
		go func(idx int, ch <-chan models.Tick) {
			defer wg.Done()
			timeout := time.After(5 * time.Second)
			for {
				select {
				case _, ok := <-ch:
					if !ok {
						return
					}
					receivedCounts[idx]++
					if receivedCounts[idx] >= numTicks {
						return
					}
				case <-timeout:
					return
				}
			}
		}(i, channels[i])
	}

	// Give consumers time to start
	time.Sleep(50 * time.Millisecond)

	// Publish ticks
	for i := 0; i < numTicks; i++ {
		tick := models.Tick{
			Symbol:    symbol,
			LTP:       1500.0 + float64(i),
			Timestamp: time.Now(),
		}
		hub.Publish(tick)
		time.Sleep(10 * time.Millisecond)
	}

	wg.Wait()

	// Verify all consumers received ticks
	for i, count := range receivedCounts {
		if count < numTicks/2 { // Allow some tolerance
			t.Errorf("Consumer %d received only %d ticks, expected at least %d", i, count, numTicks/2)
		}
	}

	// Test metrics
	metrics := hub.GetMetrics()
	if metrics.TicksReceived == 0 {
		t.Error("Expected some ticks to be received")
	}

	t.Logf("Stream hub integration test passed: Consumers=%d, TicksReceived=%d",
		numConsumers, metrics.TicksReceived)
}

// TestConcurrentAgentProcessing tests that agents can process concurrently.
func TestConcurrentAgentProcessing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agentWeights := map[string]float64{
		"technical": 0.35,
		"research":  0.25,
		"news":      0.15,
		"risk":      0.25,
	}

	technicalAgent := agents.NewTechnicalAgent(nil, 0.35)
	riskAgent := agents.NewRiskAgent(nil, 0.25)
	traderAgent := agents.NewTraderAgent(nil, agentWeights, 1.0, 0.003)

	agentList := []agents.Agent{technicalAgent}

	agentConfig := &config.AgentConfig{
		AutonomousMode:       "FULL_AUTO",
		AutoExecuteThreshold: 70,
		MaxDailyTrades:       100,
		MaxDailyLoss:         50000,
		CooldownMinutes:      0,
		ConsecutiveLossLimit: 10,
	}

	orchestrator := agents.NewOrchestrator(
		agentList,
		traderAgent,
		riskAgent,
		agentConfig,
		nil,
		nil,
	)

	orchestrator.Start(ctx)
	defer orchestrator.Stop()

	// Process multiple symbols concurrently
	symbols := []string{"RELIANCE", "TCS", "INFY", "HDFC", "ICICI"}
	var wg sync.WaitGroup
	results := make(chan *agents.Decision, len(symbols))
	errors := make(chan error, len(symbols))

	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()

			req := agents.AnalysisRequest{
				Symbol:       sym,
				CurrentPrice: 1000.0,
				SignalScore: &analysis.SignalScore{
					Score:          50,
					Recommendation: analysis.Buy,
				},
				Portfolio: &agents.PortfolioState{
					TotalValue:    1000000,
					AvailableCash: 500000,
				},
			}

			decision, err := orchestrator.ProcessSymbol(ctx, req)
			if err != nil {
				errors <- err
				return
			}
			results <- decision
		}(symbol)
	}

	wg.Wait()
	close(results)
	close(errors)

	// Check for errors
	for err := range errors {
		t.Errorf("Error processing symbol: %v", err)
	}

	t.Logf("Concurrent agent processing test passed: %d symbols processed without error", len(symbols))
}
