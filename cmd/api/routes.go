package main

import (
	"voicedial-platform/internal/httpapi"
	"voicedial-platform/internal/rbac"
	"voicedial-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: This endpoint should be protected by Twilio signature validation in production.
	{
		wh := telephony.TwilioStatusWebhookHandler{
			Calls:           h.Calls,
			ReleaseDialSlot: h.ReleaseDialSlotFunc(),
		}
		r.POST("/webhooks/twilio/status", wh.HandleStatusCallback)
	}

	// Token issuance stays outside the auth middleware.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// CAMPAIGN routes
		campaignsGrp := v1.Group("/campaigns")
		{
			read := rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer)
			write := rbac.RequireAnyRole(rbac.RoleOperator)

			campaignsGrp.GET("", read, h.ListCampaigns)
			campaignsGrp.POST("", write, h.CreateCampaign)
			campaignsGrp.GET("/:campaign_id", read, h.GetCampaign)
			campaignsGrp.POST("/:campaign_id/status", write, h.UpdateCampaignStatus)

			campaignsGrp.GET("/:campaign_id/leads", read, h.ListCampaignLeads)
			campaignsGrp.POST("/:campaign_id/leads", write, h.ImportLeads)

			campaignsGrp.POST("/:campaign_id/start", write, h.StartCampaign)
			campaignsGrp.POST("/:campaign_id/leads/:lead_id/dial", write, h.DialLead)

			campaignsGrp.GET("/:campaign_id/calls", read, h.ListCampaignCalls)
			campaignsGrp.GET("/:campaign_id/stats", read, h.GetCampaignStats)
		}

		// CALL routes
		callsGrp := v1.Group("/calls")
		callsGrp.Use(rbac.RequireAnyRole(rbac.RoleOperator))
		{
			callsGrp.POST("/test", h.PlaceTestCall)
			callsGrp.GET("/:call_id", h.GetCall)
			callsGrp.POST("/:call_id/outcome", h.RecordCallOutcome)
		}

		// VOICE routes
		voicesGrp := v1.Group("/voices")
		{
			voicesGrp.GET("", rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer), h.ListVoices)
			voicesGrp.POST("/sync", rbac.RequireAnyRole(rbac.RoleOperator), h.SyncVoices)
		}
	}
}
