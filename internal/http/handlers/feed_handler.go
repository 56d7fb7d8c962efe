// Feed HTTP handler.
//
//   - GET /feed   (latest publication posts)
//
// Responses are cached in front of this handler by the edge cache middleware,
// which also sets Cache-Control on successful responses.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Feed godoc
// @ID          feed
// @Summary     Latest posts
// @Description Returns the newest posts from the publication's RSS feed. Served from the edge cache when fresh.
// @Tags        Feed
// @Produce     json
//
// @Success     200  {object}  domain.Feed
// @Header      200  {string}  Cache-Control  "public, max-age=3600"
// @Header      200  {string}  X-Cache        "HIT or MISS"
// @Failure     405  {object}  handlers.ErrorResponse  "Method not allowed"
// @Failure     500  {object}  handlers.ErrorResponse  "Failed to fetch feed"
// @Router      /feed [get]
func (h *Handlers) Feed(c *gin.Context) {
	out, err := h.feedSvc.Latest(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, MsgFeedFailed, err)
		return
	}
	ok(c, http.StatusOK, out)
}
