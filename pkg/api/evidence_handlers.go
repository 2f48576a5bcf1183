package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Evidence handlers mirror cmd/odincode/evidence.go's subcommands, binding
// each query's parameters from the URL query string instead of flags and
// writing the result as JSON instead of to stdout.

func (s *Server) handleQ1(c *gin.Context) {
	rows, err := s.evidence.Q1(reqCtx(c), c.Query("tool"), queryInt64(c, "since", 0), queryInt64(c, "until", 0), queryInt(c, "limit", 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleQ2(c *gin.Context) {
	rows, err := s.evidence.Q2(reqCtx(c), c.Query("tool"), queryInt64(c, "since", 0), queryInt(c, "limit", 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleQ3(c *gin.Context) {
	rows, err := s.evidence.Q3(reqCtx(c), c.Query("code"), queryInt(c, "limit", 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleQ4(c *gin.Context) {
	rows, err := s.evidence.Q4(reqCtx(c), c.Query("path"), queryInt64(c, "since", 0), queryInt(c, "limit", 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleQ5(c *gin.Context) {
	row, err := s.evidence.Q5(reqCtx(c), c.Query("execution_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) handleQ6(c *gin.Context) {
	row, err := s.evidence.Q6(reqCtx(c), c.Query("path"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) handleQ7(c *gin.Context) {
	rows, err := s.evidence.Q7(reqCtx(c), queryInt(c, "threshold", 2), queryInt64(c, "since", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleQ8(c *gin.Context) {
	var filePtr *string
	if path := c.Query("path"); path != "" {
		filePtr = &path
	}
	rows, err := s.evidence.Q8(reqCtx(c), c.Query("code"), filePtr, queryInt64(c, "since", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleStaleSessions(c *gin.Context) {
	rows, err := s.evidence.StaleSessions(reqCtx(c), queryInt64(c, "cutoff", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryInt64(c *gin.Context, key string, fallback int64) int64 {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
