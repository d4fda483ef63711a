package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/NestWatch/NW-Backend/internal/api"
	"github.com/NestWatch/NW-Backend/internal/db"
	"github.com/NestWatch/NW-Backend/internal/middleware"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	nest.Init()
	api.Init(nest.NewStore(db.DB))

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)
	r.Get("/healthz", api.Healthz)

	r.Route("/nests", func(r chi.Router) {
		r.Use(middleware.TokenMiddleware(os.Getenv("API_TOKEN")))
		r.Mount("/", api.SetupRoutes())
	})

	fmt.Printf("Server listening on port :%s...\n", port)

	http.ListenAndServe("0.0.0.0:"+port, r)
}
