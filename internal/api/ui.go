package api

import (
	"net/http"
)

const studioUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Adventure Studio</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #1a1a2e;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header {
            background: #16213e;
            padding: 12px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        header h1 { font-size: 16px; color: #e94560; }
        #status { font-size: 12px; color: #888; }
        #status.connected { color: #4ecca3; }
        main { flex: 1; display: flex; min-height: 0; }
        section { flex: 1; display: flex; flex-direction: column; padding: 12px; min-width: 0; }
        .toolbar { display: flex; gap: 8px; margin-bottom: 8px; align-items: center; }
        button {
            background: #0f3460; color: #eee; border: 1px solid #e94560;
            padding: 6px 12px; font-family: monospace; cursor: pointer;
        }
        button:hover { background: #e94560; }
        input {
            background: #16213e; color: #eee; border: 1px solid #0f3460;
            padding: 6px; font-family: monospace;
        }
        textarea {
            flex: 1; background: #16213e; color: #eee; border: 1px solid #0f3460;
            padding: 8px; font-family: monospace; font-size: 13px; resize: none;
        }
        #result { font-size: 12px; white-space: pre-wrap; }
        #result.ok { color: #4ecca3; }
        #result.error { color: #e94560; }
        #events { flex: 1; overflow-y: auto; font-size: 12px; }
        .event { padding: 2px 0; border-bottom: 1px solid #16213e; }
        .event .ts { color: #666; }
        .event .name { color: #4ecca3; }
        .event.error .name { color: #e94560; }
        .event .fields { color: #888; }
    </style>
</head>
<body>
    <header>
        <h1>Adventure Studio</h1>
        <span id="status">disconnected</span>
    </header>
    <main>
        <section>
            <div class="toolbar">
                <button onclick="loadDefinition()">Load</button>
                <button onclick="saveDefinition()">Save</button>
                <button onclick="reloadDefinition()">Reload from disk</button>
            </div>
            <textarea id="definition" spellcheck="false"></textarea>
            <div id="result"></div>
        </section>
        <section>
            <div class="toolbar">
                <input id="filter" placeholder="filter, e.g. adventure.,system." size="32">
                <button onclick="reconnect()">Apply</button>
            </div>
            <div id="events"></div>
        </section>
    </main>
    <script>
        var ws = null;
        var eventsEl = document.getElementById('events');
        var statusEl = document.getElementById('status');
        var resultEl = document.getElementById('result');
        var definitionEl = document.getElementById('definition');

        function showResult(ok, text) {
            resultEl.className = ok ? 'ok' : 'error';
            resultEl.textContent = text;
        }

        function studioAnswer(res) {
            return res.json().then(function(data) {
                if (data.ok) {
                    showResult(true, 'ok (' + (data.steps || 0) + ' steps)');
                } else {
                    showResult(false, data.error + (data.problems ? '\n' + data.problems.join('\n') : ''));
                }
            });
        }

        function loadDefinition() {
            fetch('/studio/adventure')
                .then(function(res) { return res.text(); })
                .then(function(text) { definitionEl.value = text; showResult(true, 'loaded'); })
                .catch(function(err) { showResult(false, String(err)); });
        }

        function saveDefinition() {
            fetch('/studio/adventure', { method: 'POST', body: definitionEl.value })
                .then(studioAnswer)
                .catch(function(err) { showResult(false, String(err)); });
        }

        function reloadDefinition() {
            fetch('/studio/reload', { method: 'POST' })
                .then(studioAnswer)
                .then(loadDefinition)
                .catch(function(err) { showResult(false, String(err)); });
        }

        function renderEvent(e) {
            var div = document.createElement('div');
            div.className = 'event' + (e.level === 'error' ? ' error' : '');
            var ts = document.createElement('span');
            ts.className = 'ts';
            ts.textContent = (e.ts || '').substring(11, 23) + ' ';
            var name = document.createElement('span');
            name.className = 'name';
            name.textContent = e.event + ' ';
            var fields = document.createElement('span');
            fields.className = 'fields';
            fields.textContent = (e.msg ? e.msg + ' ' : '') + (e.fields ? JSON.stringify(e.fields) : '');
            div.appendChild(ts);
            div.appendChild(name);
            div.appendChild(fields);
            eventsEl.insertBefore(div, eventsEl.firstChild);
        }

        function connect() {
            var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            var filter = document.getElementById('filter').value;
            ws = new WebSocket(protocol + '//' + location.host + '/ws/events?filter=' + encodeURIComponent(filter));
            ws.onopen = function() { statusEl.textContent = 'connected'; statusEl.className = 'connected'; };
            ws.onmessage = function(msg) { renderEvent(JSON.parse(msg.data)); };
            ws.onclose = function() {
                statusEl.textContent = 'disconnected';
                statusEl.className = '';
                setTimeout(function() { if (!ws || ws.readyState === WebSocket.CLOSED) connect(); }, 2000);
            };
        }

        function reconnect() {
            eventsEl.innerHTML = '';
            if (ws) { ws.onclose = null; ws.close(); }
            connect();
        }

        loadDefinition();
        connect();
    </script>
</body>
</html>
`

func studioUIHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(studioUIHTML))
}
