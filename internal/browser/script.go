package browser

// candidateScript collects every plausible interactive element from the
// rendered page and serializes one descriptor per element. Selection covers
// clickable tags and roles, explicit interaction selector patterns, icon
// buttons wrapping an svg, and the parents of counter spans. Hidden and
// disabled elements are skipped, and a failure on one element drops that
// element only.
//
// The structural locator prefers an id anchor and falls back to a positional
// XPath; it is deterministic for a fixed page state, which makes it usable
// as the dedup key.
const candidateScript = `
(() => {
    const SELECTORS = [
        'button', 'a[href]', 'input[type="button"]', 'input[type="submit"]',
        '[onclick]', '[role="button"]', '[role="link"]', '[role="checkbox"]', '[role="radio"]',
        'a.vote', 'a.like', 'div.vote', 'div.like', 'span.vote', 'span.like',
        'i.fa-thumbs-up', 'i.fa-thumbs-down',
        '[aria-label*="like"]', '[aria-label*="vote"]', '[title*="like"]', '[title*="vote"]',
        '.vote-up', '.vote-down', '.upvote', '.downvote', '.like-button', '.dislike-button',
        '[data-action="upvote"]', '[data-action="downvote"]', '[data-action="like"]'
    ];
    const SVG_BUTTONS = 'button svg, a svg, div[role="button"] svg';
    const COUNTERS = 'span[class*="count"], span[class*="num"], span[class*="score"]';

    function pathTo(element) {
        if (element.id !== '')
            return '//*[@id="' + element.id + '"]';
        if (element === document.body)
            return '/html/body';
        if (!element.parentNode || element.parentNode.nodeType !== Node.ELEMENT_NODE)
            return '/' + element.tagName.toLowerCase();
        let index = 1;
        const siblings = element.parentNode.childNodes;
        for (let i = 0; i < siblings.length; i++) {
            const sibling = siblings[i];
            if (sibling === element)
                return pathTo(element.parentNode) + '/' + element.tagName.toLowerCase() + '[' + index + ']';
            if (sibling.nodeType === 1 && sibling.tagName === element.tagName)
                index++;
        }
        return '';
    }

    function visible(el) {
        if (el.disabled) return false;
        const rect = el.getBoundingClientRect();
        if (rect.width === 0 && rect.height === 0) return false;
        const style = window.getComputedStyle(el);
        return style.visibility !== 'hidden' && style.display !== 'none';
    }

    const candidates = [];
    const seen = new Set();
    function add(el) {
        if (!el || seen.has(el)) return;
        seen.add(el);
        candidates.push(el);
    }

    for (const selector of SELECTORS) {
        try {
            document.querySelectorAll(selector).forEach(add);
        } catch (e) { /* unsupported selector: skip */ }
    }
    document.querySelectorAll(SVG_BUTTONS).forEach(svg => add(svg.closest('button, a, div[role="button"]')));
    document.querySelectorAll(COUNTERS).forEach(counter => add(counter.parentElement));

    const results = [];
    for (const el of candidates) {
        try {
            if (!visible(el)) continue;
            const attrs = {};
            for (let i = 0; i < el.attributes.length; i++) {
                const a = el.attributes[i];
                attrs[a.name] = a.value;
            }
            const rect = el.getBoundingClientRect();
            results.push({
                tag: el.tagName.toLowerCase(),
                text: (el.textContent || '').trim().slice(0, 200),
                class: el.getAttribute('class') || '',
                id: el.id || '',
                aria_label: el.getAttribute('aria-label') || '',
                title: el.getAttribute('title') || '',
                role: el.getAttribute('role') || '',
                path: pathTo(el),
                attributes: attrs,
                outer_html: (el.outerHTML || '').slice(0, 2048),
                has_svg_icon: el.querySelector('svg') !== null,
                location: {
                    x: rect.left + window.scrollX,
                    y: rect.top + window.scrollY,
                    width: rect.width,
                    height: rect.height
                }
            });
        } catch (e) { /* partially rendered node: drop it */ }
    }
    return JSON.stringify(results);
})()
`
