/*
Package jwtmiddleware protects HTTP APIs with Microsoft Entra ID access tokens.

The Gate sits in front of a handler. For each request it resolves the route
the request will be dispatched to and looks it up in a RouteTable. Requests to
routes that are not protected pass through without their headers being read.
Requests to protected routes must carry "Authorization: Bearer <token>"; the
token is verified and the caller identity (username, email, roles) is stored
in the request context.

# Basic Usage

	keys, err := jwks.NewKeyCache()
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyResolver(keys, jwks.TenantJWKSURL(provider, tenantID)),
	    validator.WithIssuer(jwks.TenantIssuerURL(provider, tenantID)),
	    validator.WithAudience(clientID),
	)
	if err != nil {
	    log.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthz)
	mux.HandleFunc("GET /me", me)

	gate, err := jwtmiddleware.New(
	    jwtmiddleware.WithVerifier(v),
	    jwtmiddleware.WithRoutes(jwtmiddleware.NewRouteTable("GET /me")),
	    jwtmiddleware.WithServeMux(mux),
	)
	if err != nil {
	    log.Fatal(err)
	}

	http.ListenAndServe(":8080", gate.CheckJWT(mux))

Handlers read the identity with GetIdentity:

	func me(w http.ResponseWriter, r *http.Request) {
	    id, err := jwtmiddleware.GetIdentity(r.Context())
	    if err != nil {
	        http.Error(w, "not authenticated", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "hello %s", id.Username)
	}

Gate.Protect wraps a single handler and always requires a token, for routers
that do not go through a RouteTable.

GetClaims returns the full verified claim set. Applications calling with
their own client-credentials token have no user: their identity is
"app" with the single role "AppRole" and ClientCredentials set.

# Enrichment

WithEnricher runs after a user is authenticated. userinfo.Client looks the
user up in a directory service with the application's own token and fills
Identity.Attributes. A failed lookup leaves the attributes nil and the
request goes on.

# Errors

Every authentication failure is answered by the ErrorHandler. The default one
writes 401 with a JSON body:

	{"error": "Token não fornecido ou mal formatado."}
	{"error": "Token expirado."}
	{"error": "Token não contém 'preferred_username'."}
	{"error": "Token inválido: assinatura inválida"}

Failures to fetch the signing key are reported as invalid tokens, not server
errors: from the caller's side they cannot be told apart.

# Frameworks

The framework/gin, framework/echo and framework/grpc packages adapt a Gate to
those frameworks. Route patterns are the framework's own: gin FullPath, echo
Path and gRPC full method names.

# Observability

WithLogger accepts any slog-shaped logger; NewLogrusLogger adapts logrus.
WithMetrics records MetricRequests by outcome and MetricVerification latency,
with NewPrometheusMetrics as the Prometheus backend. Every verification runs
inside a SpanVerify span on the global OpenTelemetry TracerProvider unless
WithTracer says otherwise.
*/
package jwtmiddleware
