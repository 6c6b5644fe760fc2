package planhttp

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Router 暴露结构位与计划生成接口。
type Router struct {
	svc PlannerService
}

// NewRouter 构造 API router。
func NewRouter(svc PlannerService) *Router {
	return &Router{svc: svc}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/levels", r.handleLevels)
	group.POST("/plan/auto", r.handlePlanAuto)
	group.POST("/plan/dynamic", r.handlePlanDynamic)
}

func (r *Router) handleLevels(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	resp, err := r.svc.Levels(c.Request.Context(), ticker)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handlePlanAuto(c *gin.Context) {
	var req AutoPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := r.svc.PlanAuto(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// 没有策略能给出方案不算请求错误，OK=false 原样返回
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handlePlanDynamic(c *gin.Context) {
	var req DynamicPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := r.svc.PlanDynamic(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
