package server

import (
	"net/http"

	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"nodes":  s.registry.Len(),
	})
}

// objectInfo describes every registered node, extracting all of them on each request.
func (s *Server) objectInfo(c *gin.Context) {
	snap, err := s.registry.Snapshot()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, s.extractor.ExtractAll(c.Request.Context(), snap))
}

// objectInfoNode describes a single node.
func (s *Server) objectInfoNode(c *gin.Context) {
	out := map[string]objinfo.Metadata{}
	id := c.Param("node_class")

	snap, err := s.registry.Snapshot()
	if err != nil {
		c.JSON(http.StatusOK, out)
		return
	}
	d, ok := snap.Descriptor(id)
	if !ok {
		c.JSON(http.StatusOK, out)
		return
	}

	m, err := s.extractor.Extract(c.Request.Context(), id, d, snap.DisplayName(id))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusOK, out)
		return
	}
	out[id] = m

	c.JSON(http.StatusOK, out)
}
