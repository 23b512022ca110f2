package routes

import (
	"verdant/auth"
	"verdant/cart"
	"verdant/checkout"
	"verdant/middleware"
	"verdant/orders"
	"verdant/payments"
	"verdant/products"
	"verdant/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
	router.GET("/api/auth/profile", middleware.Authenticate(auth.GetProfile))
}

func AddProductRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/products", rl.Limit(middleware.OptionalAuth(products.ListProducts)))
	router.GET("/api/products/:productid", rl.Limit(middleware.OptionalAuth(products.GetProduct)))

	farmerOnly := middleware.Chain(middleware.Authenticate, middleware.RequireRoles("farmer"))
	router.POST("/api/farmer/products", farmerOnly(products.CreateProduct))
	router.GET("/api/farmer/products", farmerOnly(products.GetMyProducts))
	router.PUT("/api/farmer/products/:productid", farmerOnly(products.UpdateProduct))
	router.DELETE("/api/farmer/products/:productid", farmerOnly(products.DeleteProduct))
}

func AddCartRoutes(router *httprouter.Router) {
	router.GET("/api/cart", middleware.Authenticate(cart.GetCart))
	router.POST("/api/cart", middleware.Authenticate(cart.AddToCart))
	router.PUT("/api/cart/:productid", middleware.Authenticate(cart.UpdateLine))
	router.DELETE("/api/cart/:productid", middleware.Authenticate(cart.RemoveLine))
	router.POST("/api/cart/clear", middleware.Authenticate(cart.ClearCart))
}

func AddCheckoutRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	svc := checkout.NewService(
		checkout.NewMongoCartStore(),
		checkout.NewMongoProductStore(),
		checkout.NewMongoOrderStore(),
		payments.FromEnv(),
	)
	h := checkout.NewHandler(svc)

	guarded := middleware.Chain(rl.Limit, middleware.Authenticate)
	router.POST("/api/checkout/payment-intent", guarded(h.CreateIntent))
	router.POST("/api/checkout/confirm", guarded(h.Confirm))
}

func AddOrderRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/orders", middleware.Authenticate(orders.GetMyOrders))
	router.GET("/api/orders/:orderid", middleware.Authenticate(orders.GetOrder))
	router.GET("/api/orders/:orderid/receipt", rl.Limit(middleware.Authenticate(orders.PrintReceipt)))
	router.GET("/ws/orders/:orderid", middleware.Authenticate(orders.HandleOrderWS))

	farmerOnly := middleware.Chain(middleware.Authenticate, middleware.RequireRoles("farmer"))
	router.GET("/api/farmer/orders", farmerOnly(orders.GetIncomingOrders))
	router.PUT("/api/orders/:orderid/status", farmerOnly(orders.UpdateStatus))
}
