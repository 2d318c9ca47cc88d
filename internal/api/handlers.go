package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleStatus(c *gin.Context) {
	prices := s.exchange.MarketPrices()
	c.JSON(http.StatusOK, gin.H{
		"version":         s.meta.Version,
		"started_at":      s.meta.StartedAt,
		"run_tag":         s.meta.RunTag,
		"exchange_up":     s.exchange.IsRunning(),
		"strategy_count":  s.manager.Count(),
		"portfolio_value": s.portfolio.PortfolioValue(prices),
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	prices := s.exchange.MarketPrices()
	positions := s.portfolio.Orders().GetAllPositions()

	out := make([]gin.H, 0, len(positions))
	for _, p := range positions {
		mark, ok := prices[p.Symbol]
		unrealized := 0.0
		if ok {
			unrealized = p.UnrealizedPnL(mark)
		}
		out = append(out, gin.H{
			"symbol":         p.Symbol,
			"quantity":       p.Quantity,
			"average_price":  p.AveragePrice,
			"realized_pnl":   p.RealizedPnL,
			"unrealized_pnl": unrealized,
			"mark_price":     mark,
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func (s *Server) handleOrders(c *gin.Context) {
	orders := s.portfolio.Orders().GetActiveOrders()
	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		out = append(out, gin.H{
			"order_id":        o.OrderID,
			"symbol":          o.Symbol,
			"side":            o.Side,
			"type":            o.Type,
			"status":          o.Status,
			"limit_price":     o.LimitPrice,
			"quantity":        o.Quantity,
			"filled_quantity": o.FilledQuantity,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (s *Server) handleRisk(c *gin.Context) {
	prices := s.exchange.MarketPrices()
	c.JSON(http.StatusOK, gin.H{
		"cash":                   s.portfolio.Cash(),
		"initial_capital":        s.portfolio.InitialCapital(),
		"realized_pnl":           s.portfolio.RealizedPnL(),
		"unrealized_pnl":         s.portfolio.UnrealizedPnL(prices),
		"total_pnl":              s.portfolio.TotalPnL(prices),
		"gross_exposure":         s.portfolio.GrossExposure(prices),
		"net_exposure":           s.portfolio.NetExposure(prices),
		"max_position_size":      s.portfolio.MaxPositionSize(),
		"max_portfolio_exposure": s.portfolio.MaxPortfolioExposure(),
	})
}

func (s *Server) handleListStrategies(c *gin.Context) {
	strategies := s.manager.All()
	out := make([]gin.H, 0, len(strategies))
	for _, st := range strategies {
		out = append(out, gin.H{
			"name":    st.Name(),
			"running": st.IsRunning(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"strategies": out})
}

func (s *Server) handleStartStrategy(c *gin.Context) {
	name := c.Param("name")
	if !s.manager.Start(name) {
		respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "no strategy registered with that name")
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "running": true})
}

func (s *Server) handleStopStrategy(c *gin.Context) {
	name := c.Param("name")
	if !s.manager.Stop(name) {
		respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "no strategy registered with that name")
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "running": false})
}

func journalLimit(c *gin.Context) int {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	return limit
}

func (s *Server) handleJournalOrders(c *gin.Context) {
	if s.journal == nil {
		respondError(c, http.StatusNotFound, "JOURNAL_DISABLED", "this run was started without a journal")
		return
	}
	orders, err := s.journal.RecentOrders(c.Request.Context(), journalLimit(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "JOURNAL_QUERY_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleJournalFills(c *gin.Context) {
	if s.journal == nil {
		respondError(c, http.StatusNotFound, "JOURNAL_DISABLED", "this run was started without a journal")
		return
	}
	fills, err := s.journal.RecentFills(c.Request.Context(), journalLimit(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "JOURNAL_QUERY_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"fills": fills})
}
