package httpapi

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>BitNet RAG</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  form { display: flex; gap: 0.5rem; flex-wrap: wrap; }
  input, button { font: inherit; padding: 0.4rem 0.6rem; border-radius: 6px; border: 1px solid #334155; background: #0f172a; color: #e2e8f0; }
  input[type=text] { flex: 1; }
  button { background: #38bdf8; color: #0f172a; border: none; cursor: pointer; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; white-space: pre-wrap; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #a5b4fc; }
</style>
</head>
<body>
<div class="card">
  <h1>BitNet RAG</h1>
  <p class="subtitle">Upload text documents, then ask questions answered from the best-matching document.</p>

  <div class="section">
    <div class="section-title">Upload</div>
    <form id="upload">
      <input type="file" name="files" multiple>
      <button type="submit">Upload</button>
    </form>
  </div>

  <div class="section">
    <div class="section-title">Query</div>
    <form id="query">
      <input type="text" name="query" placeholder="Ask a question">
      <button type="submit">Ask</button>
    </form>
  </div>

  <div class="section">
    <div class="section-title">Result</div>
    <pre id="result">-</pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><a href="/documents" class="endpoint">/documents</a> stored documents</p>
    <p><a href="/health" class="endpoint">/health</a> health check</p>
    <p><span class="endpoint">/mcp</span> MCP Streamable HTTP</p>
  </div>
</div>
<script>
  const out = document.getElementById("result");
  async function show(res) { out.textContent = JSON.stringify(await res.json(), null, 2); }
  document.getElementById("upload").addEventListener("submit", async (e) => {
    e.preventDefault();
    out.textContent = "Processing...";
    await show(await fetch("/upload", { method: "POST", body: new FormData(e.target) }));
  });
  document.getElementById("query").addEventListener("submit", async (e) => {
    e.preventDefault();
    out.textContent = "Thinking...";
    const query = new FormData(e.target).get("query");
    await show(await fetch("/query", { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify({ query }) }));
  });
</script>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
