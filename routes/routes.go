package routes

import (
	"merx/auth"
	"merx/catalog"
	"merx/middleware"
	"merx/orders"
	"merx/ratelim"
	"merx/users"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, a *auth.Service, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(a.Register))
	router.POST("/api/auth/login", rl.Limit(a.Login))
	router.POST("/api/auth/google", rl.Limit(a.GoogleLogin))
	router.GET("/api/auth/verify-email", a.VerifyEmail)
	router.POST("/api/auth/logout", mw.Authenticate(a.Logout))
	router.POST("/api/auth/send-email", mw.Authenticate(mw.RequireAdmin(a.SendEmail)))
}

func AddCatalogRoutes(router *httprouter.Router, c *catalog.Service, mw *middleware.Auth) {
	router.GET("/api/products", c.ListProducts)
	router.GET("/api/products/:productid", c.GetProduct)
	router.POST("/api/products", mw.Authenticate(mw.RequireAdmin(c.CreateProduct)))
	router.PUT("/api/products/:productid", mw.Authenticate(mw.RequireAdmin(c.UpdateProduct)))
	router.DELETE("/api/products/:productid", mw.Authenticate(mw.RequireAdmin(c.DeleteProduct)))
	router.POST("/api/products/bulk-delete", mw.Authenticate(mw.RequireAdmin(c.BulkDeleteProducts)))
}

func AddUserRoutes(router *httprouter.Router, u *users.Service, mw *middleware.Auth) {
	router.GET("/api/users", mw.Authenticate(mw.RequireAdmin(u.ListUsers)))
	router.POST("/api/users", mw.Authenticate(mw.RequireAdmin(u.CreateUser)))
	router.PUT("/api/users/:userid", mw.Authenticate(mw.RequireAdmin(u.UpdateUser)))
	router.DELETE("/api/users/:userid", mw.Authenticate(mw.RequireAdmin(u.DeleteUser)))
}

func AddOrderRoutes(router *httprouter.Router, o *orders.Service, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.POST("/api/orders", rl.Limit(mw.Authenticate(o.CreateOrder)))
	router.GET("/api/orders", mw.Authenticate(mw.RequireAdmin(o.GetAllOrders)))
	router.GET("/api/orders/:userid", mw.Authenticate(o.GetUserOrders))
	router.PATCH("/api/orders/:orderid/status", mw.Authenticate(mw.RequireAdmin(o.UpdateOrderStatus)))
	router.GET("/api/receipts/:orderid", mw.Authenticate(o.OrderReceipt))
}
