package browser

// CursorHighlightScript draws a translucent dot that follows mousemove events.
// Synthetic pointer input has no visible cursor in headed runs or screenshots,
// so the dot shows where the agent is pointing. It is installed as an init
// script and runs on every document the page loads.
const CursorHighlightScript = `(() => {
  const init = () => {
    if (!document.querySelector('style[data-cursor-highlight]')) {
      const style = document.createElement('style');
      style.setAttribute('data-cursor-highlight', 'true');
      style.textContent = '.cursor-highlight {' +
        'position: fixed; width: 20px; height: 20px;' +
        'background-color: rgba(255, 165, 0, 0.5); border-radius: 50%;' +
        'pointer-events: none; transform: translate(-50%, -50%);' +
        'transition: all 0.1s ease; z-index: 9999;' +
        'box-shadow: 0 0 10px rgba(255, 165, 0, 0.3); }';
      document.head.appendChild(style);
    }
    if (!document.querySelector('.cursor-highlight')) {
      const dot = document.createElement('div');
      dot.classList.add('cursor-highlight');
      document.body.appendChild(dot);
    }
    if (!window.__cursorHighlightInitialized) {
      const dot = document.querySelector('.cursor-highlight');
      window.addEventListener('mousemove', (event) => {
        dot.style.left = event.clientX + 'px';
        dot.style.top = event.clientY + 'px';
      });
      window.__cursorHighlightInitialized = true;
    }
  };
  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', init);
  } else {
    init();
  }
})();`
