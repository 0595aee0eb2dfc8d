package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/service"
)

// CatalogHandler serves the merged catalog and the live AniList views.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler.
// Parameters:
//   - catalogService: catalog service instance.
// Returns:
//   - *CatalogHandler: initialized handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalogService}
}

// CatalogResponse wraps a list of catalog items.
type CatalogResponse struct {
	Items []domain.CatalogItem `json:"items"`
	Total int                  `json:"total"`
}

// ListCatalog handles GET /api/v1/catalog.
func (h *CatalogHandler) ListCatalog(c *gin.Context) {
	var kind domain.Kind
	if raw := c.Query("kind"); raw != "" {
		k, err := domain.ParseKind(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		kind = k
	}

	items, err := h.catalog.Catalog(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CatalogResponse{Items: items, Total: len(items)})
}

// GetGenres handles GET /api/v1/catalog/genres.
func (h *CatalogHandler) GetGenres(c *gin.Context) {
	genres, err := h.catalog.Genres(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

// GetItem handles GET /api/v1/catalog/:id.
// Ids not held locally in the "anilist:<n>" form are looked up remotely.
func (h *CatalogHandler) GetItem(c *gin.Context) {
	item, err := h.catalog.Item(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetAiring handles GET /api/v1/airing.
func (h *CatalogHandler) GetAiring(c *gin.Context) {
	lookup := false
	if raw := c.Query("lookup"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "lookup must be a boolean")
			return
		}
		lookup = v
	}

	entries, err := h.catalog.AiringSoon(c.Request.Context(), service.AiringOptions{Lookup: lookup})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries, "total": len(entries)})
}

// GetRecent handles GET /api/v1/recent. kind defaults to ANIME, page to 1.
func (h *CatalogHandler) GetRecent(c *gin.Context) {
	kind, err := domain.ParseKind(c.DefaultQuery("kind", string(domain.KindAnime)))
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		badRequest(c, "page must be a positive integer")
		return
	}

	items, err := h.catalog.Recent(c.Request.Context(), kind, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CatalogResponse{Items: items, Total: len(items)})
}
