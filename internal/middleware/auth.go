package middleware

import (
    "context"
    "net/http"
    "os"
    "strings"

    "github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserContextKey contextKey = "user"

type Claims struct {
    OperatorID int    `json:"operator_id"`
    Email      string `json:"email"`
    Role       string `json:"role"`
    jwt.RegisteredClaims
}

func AuthMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        authHeader := r.Header.Get("Authorization")
        if authHeader == "" {
            http.Error(w, `{"success":false,"error":"Authorization header required"}`, http.StatusUnauthorized)
            return
        }

        tokenString := strings.TrimPrefix(authHeader, "Bearer ")
        if tokenString == authHeader {
            http.Error(w, `{"success":false,"error":"Bearer token required"}`, http.StatusUnauthorized)
            return
        }

        secret := os.Getenv("JWT_SECRET")
        if secret == "" {
            secret = "change-me-in-production"
        }

        token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
            return []byte(secret), nil
        })

        if err != nil || !token.Valid {
            http.Error(w, `{"success":false,"error":"Invalid token"}`, http.StatusUnauthorized)
            return
        }

        claims, ok := token.Claims.(*Claims)
        if !ok {
            http.Error(w, `{"success":false,"error":"Invalid token claims"}`, http.StatusUnauthorized)
            return
        }

        ctx := context.WithValue(r.Context(), UserContextKey, claims)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

func GetUserFromContext(r *http.Request) *Claims {
    claims, ok := r.Context().Value(UserContextKey).(*Claims)
    if !ok {
        return nil
    }
    return claims
}
