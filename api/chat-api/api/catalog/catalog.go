// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package catalog_api

import (
	"net/http"

	"github.com/acasochat/acaso/pkg/catalog"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
)

type FiltersResponse struct {
	Video []catalog.Entry `json:"video"`
	Audio []catalog.Entry `json:"audio"`
}

// @Router /v1/catalog/filters [get]
func Filters(c *gin.Context) {
	utils.Success(c, http.StatusOK, FiltersResponse{Video: catalog.VideoFilters, Audio: catalog.AudioFilters})
}

// @Router /v1/catalog/report-reasons [get]
func ReportReasons(c *gin.Context) {
	utils.Success(c, http.StatusOK, catalog.ReportReasons)
}
