package dashboard

import "net/http"

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Inbox</title>
<style>
  :root {
    --bg: #0d1117;
    --surface: #161b22;
    --border: #30363d;
    --text: #e6edf3;
    --text-dim: #8b949e;
    --accent: #58a6ff;
    --green: #3fb950;
    --red: #f85149;
  }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
    background: var(--bg);
    color: var(--text);
    font-size: 14px;
    line-height: 1.5;
    padding: 16px;
  }
  header { display: flex; align-items: center; gap: 12px; margin-bottom: 16px; }
  h1 { font-size: 18px; }
  .badge {
    background: var(--red); color: #fff; border-radius: 10px;
    padding: 0 7px; font-size: 12px; font-weight: 600;
  }
  .badge:empty { display: none; }
  .dim { color: var(--text-dim); }
  .panel { background: var(--surface); border: 1px solid var(--border); border-radius: 6px; padding: 12px; margin-bottom: 12px; }
  .msg { padding: 4px 0; border-bottom: 1px solid var(--border); }
  .msg:last-child { border-bottom: none; }
  .me { color: var(--accent); }
  .flag-on { color: var(--green); }
  button, input { background: var(--bg); color: var(--text); border: 1px solid var(--border); border-radius: 4px; padding: 4px 8px; }
  form { display: flex; gap: 8px; margin-top: 8px; }
  input[type=text] { flex: 1; }
</style>
</head>
<body>
<header>
  <h1>Inbox</h1><span id="badge" class="badge"></span>
  <span class="dim" id="ident"></span>
</header>
<div class="panel">
  <div>Flag: <span id="flag">-</span> &middot; Log: <span id="state">-</span></div>
  <form onsubmit="return false">
    <button id="read">Mark as read</button>
    <button id="flagOn">Set flag</button>
    <button id="flagOff">Clear flag</button>
  </form>
</div>
<div class="panel" id="messages"><span class="dim">No messages</span></div>
<div class="panel">
  <form id="send">
    <input type="text" id="text" placeholder="Message text" autocomplete="off">
    <label class="dim"><input type="checkbox" id="device"> from device</label>
    <button type="submit">Add</button>
  </form>
</div>
<script>
let ws, nextID = 1;
function esc(s) { const d = document.createElement('div'); d.textContent = s; return d.innerHTML; }
function render(s) {
  document.getElementById('badge').textContent = s.badge;
  document.getElementById('ident').textContent = s.origin + ' / ' + s.view_id;
  const f = document.getElementById('flag');
  f.textContent = String(s.flag);
  f.className = s.flag ? 'flag-on' : '';
  document.getElementById('state').textContent = s.new_message ? 'unread' : 'read';
  const box = document.getElementById('messages');
  if (!s.messages.length) { box.innerHTML = '<span class="dim">No messages</span>'; return; }
  box.innerHTML = s.messages.map(m =>
    '<div class="msg"><span class="dim">#' + m.id + '</span> ' +
    '<span class="' + (m.is_from_device ? 'me' : '') + '">' + esc(m.text) + '</span></div>').join('');
  nextID = Math.max(nextID, ...s.messages.map(m => m.id + 1));
}
function connect() {
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  ws = new WebSocket(proto + '//' + location.host + '/ws');
  ws.onmessage = e => { const f = JSON.parse(e.data); if (f.type === 'state') render(f.state); };
  ws.onclose = () => setTimeout(connect, 1000);
}
function post(path, body) {
  return fetch(path, { method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body || {}) });
}
document.getElementById('read').onclick = () => ws.send(JSON.stringify({type: 'mark_read'}));
document.getElementById('flagOn').onclick = () => post('/api/flag', {value: true}).then(refresh);
document.getElementById('flagOff').onclick = () => post('/api/flag', {value: false}).then(refresh);
document.getElementById('send').onsubmit = e => {
  e.preventDefault();
  const t = document.getElementById('text');
  if (!t.value) return;
  ws.send(JSON.stringify({type: 'message', message: {id: nextID++, text: t.value, is_from_device: document.getElementById('device').checked}}));
  t.value = '';
};
function refresh() { fetch('/api/state').then(r => r.json()).then(render); }
refresh();
connect();
</script>
</body>
</html>
`
